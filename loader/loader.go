package loader

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/logger"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game     *lua.LTable
	scenes   []rawScene
	items    []rawItem
	handlers []rawHandler
}

// Load reads all .lua files from dir. See LoadFS.
func Load(dir string, log *slog.Logger) (*state.Defs, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading game directory %s: %w", dir, err)
	}
	return LoadFS(os.DirFS(dir), log)
}

// LoadFS executes every .lua file at the root of fsys (game.lua first, the
// rest alphabetically), compiles the collected definitions, validates them
// and returns the immutable Defs. Warnings are logged. The Lua VM stays
// alive behind Defs.Runtime to evaluate computed content; call Defs.Close
// when done.
func LoadFS(fsys fs.FS, log *slog.Logger) (*state.Defs, error) {
	log = logger.OrDefault(log)
	defs, iss, err := load(fsys, log)
	if err != nil {
		if defs != nil {
			defs.Close()
		}
		return nil, err
	}
	for _, w := range iss.warnings {
		log.Warn("content warning", "detail", w)
	}
	return defs, nil
}

// load returns the compiled defs together with every recorded issue. On a
// *ValidationError the defs are still returned so they can be inspected.
func load(fsys fs.FS, log *slog.Logger) (*state.Defs, *issues, error) {
	log = logger.OrDefault(log)

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("reading game directory: %w", err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, nil, fmt.Errorf("no .lua files found")
	}
	luaFiles = sortedLuaFiles(luaFiles)

	rt := newRuntime()
	coll := &collector{}
	registerAPI(rt, coll)

	for _, f := range luaFiles {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			rt.Close()
			return nil, nil, fmt.Errorf("reading %s: %w", f, err)
		}
		if err := rt.exec(data, f); err != nil {
			rt.Close()
			return nil, nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	iss := &issues{}
	defs := compile(coll, rt, iss, log)
	validate(defs, iss)
	log.Debug("content loaded", "title", defs.Game.Title, "scenes", len(defs.Scenes),
		"items", len(defs.Items), "handlers", len(defs.Handlers), "files", len(luaFiles))

	return defs, iss, iss.err()
}

// exec runs one chunk of content at load time.
func (r *Runtime) exec(src []byte, name string) error {
	fn, err := r.L.Load(bytes.NewReader(src), name)
	if err != nil {
		return err
	}
	r.L.Push(fn)
	return r.L.PCall(0, lua.MultRet, nil)
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	// Table library (table.insert, table.sort, etc.)
	lua.OpenTable(L)
	// String library (string.format, string.sub, etc.)
	lua.OpenString(L)
	// Math library (math.floor, math.max, etc.)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "print",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Dice come from roll(), which is seeded from the player record.
	if mathTbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		mathTbl.RawSetString("random", lua.LNil)
		mathTbl.RawSetString("randomseed", lua.LNil)
	}
}

// sortedLuaFiles returns .lua files with game.lua first and the rest sorted
// alphabetically. Later files override earlier definitions with the same id.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if path.Base(f) == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
