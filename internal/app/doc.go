// Package app wires the editor's components together and runs them.
//
// An Application owns the configuration, logger, event bus, resource
// loader, hydration pipeline, playback controller, snapshot store and the
// editing engine. It can be driven three ways: interactively on a terminal
// surface (Run), by a Lua script (RunScript), or headlessly to export a PNG
// of the current canvas (Export).
//
// Components are built in dependency order by bootstrap and released in
// reverse order by Shutdown. When a configuration file is watched, reloads
// apply the log level, playback frame rate, hydration concurrency and
// default placement without a restart.
package app
