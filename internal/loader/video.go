package loader

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/abema/go-mp4"
)

// VideoMeta is the metadata available once a video is ready to play.
type VideoMeta struct {
	Width    float64
	Height   float64
	Duration time.Duration
}

// VideoHandle is a ready-to-play video. It owns the media play state; the
// playback controller starts and pauses it, renderers read Position.
type VideoHandle struct {
	Src  string
	Meta VideoMeta

	mu        sync.Mutex
	playing   bool
	startedAt time.Time
	offset    time.Duration
	now       func() time.Time
}

// NewVideoHandle creates a paused handle for src with the given metadata.
func NewVideoHandle(src string, meta VideoMeta) *VideoHandle {
	return &VideoHandle{Src: src, Meta: meta, now: time.Now}
}

// NaturalSize returns the video's natural dimensions.
func (v *VideoHandle) NaturalSize() (float64, float64) {
	return v.Meta.Width, v.Meta.Height
}

// Play starts or resumes playback. Playing an already playing handle is a
// no-op.
func (v *VideoHandle) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.playing {
		return
	}
	v.playing = true
	v.startedAt = v.now()
}

// Pause stops playback, keeping the current position.
func (v *VideoHandle) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing {
		return
	}
	v.offset = v.positionLocked()
	v.playing = false
}

// Playing reports whether the handle is playing.
func (v *VideoHandle) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// Position returns the current playhead, looping over the duration.
func (v *VideoHandle) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.positionLocked()
}

func (v *VideoHandle) positionLocked() time.Duration {
	pos := v.offset
	if v.playing {
		pos += v.now().Sub(v.startedAt)
	}
	if v.Meta.Duration > 0 {
		pos %= v.Meta.Duration
	}
	return pos
}

// probeVideo reads natural size and duration from an MP4/QuickTime container.
func probeVideo(data []byte) (VideoMeta, error) {
	r := bytes.NewReader(data)

	tkhds, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeTkhd()})
	if err != nil {
		return VideoMeta{}, fmt.Errorf("probe tracks: %w", err)
	}

	var meta VideoMeta
	for _, box := range tkhds {
		tkhd, ok := box.Payload.(*mp4.Tkhd)
		if !ok {
			continue
		}
		// Track dimensions are 16.16 fixed point; audio tracks report zero.
		w := float64(tkhd.Width) / 65536
		h := float64(tkhd.Height) / 65536
		if w > 0 && h > 0 {
			meta.Width, meta.Height = w, h
			break
		}
	}
	if meta.Width == 0 || meta.Height == 0 {
		return VideoMeta{}, ErrNoVideoTrack
	}

	if _, err := r.Seek(0, 0); err != nil {
		return VideoMeta{}, err
	}
	mvhds, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err == nil && len(mvhds) > 0 {
		if mvhd, ok := mvhds[0].Payload.(*mp4.Mvhd); ok && mvhd.Timescale > 0 {
			units := uint64(mvhd.DurationV0)
			if mvhd.GetVersion() == 1 {
				units = mvhd.DurationV1
			}
			meta.Duration = time.Duration(float64(units) / float64(mvhd.Timescale) * float64(time.Second))
		}
	}

	return meta, nil
}
