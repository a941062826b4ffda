// Package script runs Lua scene scripts.
//
// A State owns one gopher-lua interpreter with only the base, table, string
// and math libraries opened. Scripts drive the editor through the global
// canvas table:
//
//	local i = canvas.add_text("Hello")
//	canvas.select(i)
//	canvas.move(10, 0)
//	canvas.save()
//
// Indices are 1-based on the Lua side. Functions that can fail for reasons
// outside the script's control return nil plus an error message.
package script
