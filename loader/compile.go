package loader

import (
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/types"
)

// rawScene holds a scene table before compilation.
type rawScene struct {
	id    string
	table *lua.LTable
}

// rawItem holds an item table before compilation.
type rawItem struct {
	id    string
	table *lua.LTable
}

// rawHandler holds an event handler before compilation.
type rawHandler struct {
	eventType string
	table     *lua.LTable
}

// itemRef records a literal item id mentioned by content, checked once the
// whole item table is known.
type itemRef struct {
	where string
	id    string
}

// compiler turns Lua tables into definitions. iss may be nil when content
// is compiled at runtime (a choices function returning tables); problems are
// then left for the rules engine to fail closed on.
type compiler struct {
	rt   *Runtime
	iss  *issues
	refs []itemRef
}

func (c *compiler) errorf(format string, args ...any) {
	if c.iss != nil {
		c.iss.errorf(format, args...)
	}
}

func (c *compiler) warnf(format string, args ...any) {
	if c.iss != nil {
		c.iss.warnf(format, args...)
	}
}

func (c *compiler) ref(where, id string) {
	if id != "" {
		c.refs = append(c.refs, itemRef{where: where, id: id})
	}
}

// compileChoices converts a runtime choice table.
func compileChoices(r *Runtime, tbl *lua.LTable) []types.Choice {
	c := &compiler{rt: r}
	return c.choices(tbl, "")
}

// compileUpdate converts a runtime update table.
func compileUpdate(tbl *lua.LTable) update {
	c := &compiler{}
	return c.update(tbl, "")
}

// compile converts the collected Lua tables into Defs. Structural problems
// are recorded in iss.
func compile(coll *collector, rt *Runtime, iss *issues, log *slog.Logger) *state.Defs {
	c := &compiler{rt: rt, iss: iss}

	var game types.GameDef
	if coll.game != nil {
		game = types.GameDef{
			Title:   getString(coll.game, "title"),
			Author:  getString(coll.game, "author"),
			Version: getString(coll.game, "version"),
			Start:   getString(coll.game, "start"),
			Intro:   getString(coll.game, "intro"),
		}
	} else {
		c.errorf("Game { ... } block is missing")
	}
	startGiven := game.Start != ""

	defs := state.NewDefs(game)
	if !startGiven {
		defs.Game.Start = ""
	}
	defs.Runtime = rt

	for _, ri := range coll.items {
		it := c.item(ri)
		if defs.AddItem(it) {
			log.Debug("item redefined, later definition wins", "item", it.ID)
		}
	}

	for _, rs := range coll.scenes {
		sc := c.scene(rs)
		if defs.AddScene(sc) {
			log.Debug("scene redefined, later definition wins", "scene", sc.ID)
			c.warnf("scene %q defined more than once; the later definition wins", sc.ID)
		}
	}

	for _, rh := range coll.handlers {
		defs.Handlers = append(defs.Handlers, c.handler(rh))
	}

	for _, ref := range c.refs {
		if _, ok := defs.Item(ref.id); !ok {
			c.warnf("%s references unknown item %q", ref.where, ref.id)
		}
	}

	return defs
}

func (c *compiler) scene(rs rawScene) types.Scene {
	tbl := rs.table
	where := fmt.Sprintf("scene %q", rs.id)
	sc := types.Scene{
		ID:       rs.id,
		Title:    getString(tbl, "title"),
		Category: getString(tbl, "category"),
		Image:    getString(tbl, "image"),
	}
	if sc.Title == "" {
		c.warnf("%s has no title", where)
	}

	switch v := tbl.RawGetString("description").(type) {
	case lua.LString:
		sc.Description = types.Literal(string(v))
	case *lua.LFunction:
		sc.Description = c.rt.text(v)
	case *lua.LNilType:
		c.warnf("%s has no description", where)
	default:
		c.errorf("%s: description must be a string or function, got %s", where, v.Type())
	}

	switch v := tbl.RawGetString("choices").(type) {
	case *lua.LTable:
		sc.Choices = types.Literal(c.choices(v, where))
	case *lua.LFunction:
		sc.Choices = c.rt.choices(v)
	case *lua.LNilType:
	default:
		c.errorf("%s: choices must be a table or function, got %s", where, v.Type())
	}

	switch v := tbl.RawGetString("on_enter").(type) {
	case *lua.LTable:
		up := c.update(v, where+" on_enter")
		sc.OnEnter = up.apply
	case *lua.LFunction:
		sc.OnEnter = c.rt.hook(v)
	case *lua.LNilType:
	default:
		c.errorf("%s: on_enter must be an Update or function, got %s", where, v.Type())
	}

	return sc
}

func (c *compiler) choices(tbl *lua.LTable, where string) []types.Choice {
	var out []types.Choice
	for i := 1; i <= tbl.MaxN(); i++ {
		ct, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			c.errorf("%s: choice %d is not a table", where, i)
			continue
		}
		out = append(out, c.choice(ct, fmt.Sprintf("%s choice %d", where, i)))
	}
	return out
}

func (c *compiler) choice(tbl *lua.LTable, where string) types.Choice {
	ch := types.Choice{
		Text:         getString(tbl, "text"),
		GoldCost:     getInt(tbl, "gold_cost"),
		ItemRequired: getString(tbl, "item_required"),
		FlagRequired: getString(tbl, "flag_required"),
	}
	if ch.Text == "" {
		c.errorf("%s has no text", where)
	}
	c.ref(where, ch.ItemRequired)

	switch v := tbl.RawGetString("next").(type) {
	case lua.LString:
		ch.Next = types.Literal(string(v))
	case *lua.LFunction:
		ch.Next = c.rt.text(v)
	case *lua.LNilType:
		c.errorf("%s has no next scene", where)
	default:
		c.errorf("%s: next must be a string or function, got %s", where, v.Type())
	}

	if reqs := getTable(tbl, "requires"); reqs != nil {
		ch.Requires = c.requirements(reqs, where)
	}
	if fn, ok := tbl.RawGetString("condition").(*lua.LFunction); ok && c.rt != nil {
		ch.Condition = c.rt.predicate(fn)
	}
	if sk := getTable(tbl, "skill"); sk != nil {
		ch.SkillRequirement = &types.SkillRequirement{
			Skill: getString(sk, "skill"),
			Level: getInt(sk, "level"),
		}
		c.checkSkill(where, ch.SkillRequirement.Skill)
	}
	return ch
}

func (c *compiler) requirements(tbl *lua.LTable, where string) []types.Requirement {
	var out []types.Requirement
	for i := 1; i <= tbl.MaxN(); i++ {
		rt, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			c.errorf("%s: requirement %d is not a table", where, i)
			continue
		}
		req := types.Requirement{
			Type:   getString(rt, "type"),
			Skill:  getString(rt, "skill"),
			Amount: getInt(rt, "amount"),
			Item:   getString(rt, "item"),
			Flag:   getString(rt, "flag"),
		}
		switch req.Type {
		case types.ReqGoldAtLeast, types.ReqFlagSet, types.ReqFlagNot:
		case types.ReqHasItem:
			c.ref(where, req.Item)
		case types.ReqSkillAtLeast:
			c.checkSkill(where, req.Skill)
		case types.ReqCustom:
			if fn, ok := rt.RawGetString("fn").(*lua.LFunction); ok && c.rt != nil {
				req.Check = c.rt.predicate(fn)
			}
		default:
			c.errorf("%s: unknown requirement type %q", where, req.Type)
		}
		out = append(out, req)
	}
	return out
}

func (c *compiler) checkSkill(where, skill string) {
	switch skill {
	case types.SkillCombat, types.SkillMagic, types.SkillDiplomacy, types.SkillStealth:
	default:
		c.errorf("%s: unknown skill %q", where, skill)
	}
}

// update is a compiled Update{...}: a delta plus items to consume.
type update struct {
	delta types.Delta
	use   []string
}

var updateInts = map[string]func(d *types.Delta) *int{
	"health":              func(d *types.Delta) *int { return &d.Health },
	"magic":               func(d *types.Delta) *int { return &d.Magic },
	"gold":                func(d *types.Delta) *int { return &d.Gold },
	"experience":          func(d *types.Delta) *int { return &d.Experience },
	"level":               func(d *types.Delta) *int { return &d.Level },
	types.SkillCombat:     func(d *types.Delta) *int { return &d.Combat },
	types.SkillMagic:      func(d *types.Delta) *int { return &d.MagicSkill },
	types.SkillDiplomacy:  func(d *types.Delta) *int { return &d.Diplomacy },
	types.SkillStealth:    func(d *types.Delta) *int { return &d.Stealth },
}

func (c *compiler) update(tbl *lua.LTable, where string) update {
	var up update
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			c.warnf("%s: update has a non-string key", where)
			return
		}
		name := string(key)
		if field, ok := updateInts[name]; ok {
			if n, ok := v.(lua.LNumber); ok {
				*field(&up.delta) = int(n)
			} else {
				c.errorf("%s: update field %q must be a number", where, name)
			}
			return
		}
		switch name {
		case updateMarker:
		case "flags":
			if ft, ok := v.(*lua.LTable); ok {
				up.delta.Flags = map[string]bool{}
				ft.ForEach(func(fk, fv lua.LValue) {
					if fs, ok := fk.(lua.LString); ok {
						up.delta.Flags[string(fs)] = lua.LVAsBool(fv)
					}
				})
			}
		case "items":
			up.delta.Items = stringList(v)
			for _, id := range up.delta.Items {
				c.ref(where, id)
			}
		case "use":
			up.use = stringList(v)
			for _, id := range up.use {
				c.ref(where, id)
			}
		default:
			c.warnf("%s: unknown update field %q", where, name)
		}
	})
	return up
}

// apply writes the update through the store's write surface.
func (u update) apply(w types.Updater) error {
	if !u.empty() {
		if err := w.ApplyUpdate(u.delta); err != nil {
			return err
		}
	}
	for _, id := range u.use {
		if _, err := w.UseItem(id); err != nil {
			return err
		}
	}
	return nil
}

func (u update) empty() bool {
	d := u.delta
	return d.Health == 0 && d.Magic == 0 && d.Gold == 0 && d.Experience == 0 &&
		d.Level == 0 && d.Combat == 0 && d.MagicSkill == 0 && d.Diplomacy == 0 &&
		d.Stealth == 0 && len(d.Flags) == 0 && len(d.Items) == 0
}

func (c *compiler) item(ri rawItem) types.Item {
	tbl := ri.table
	it := types.Item{
		ID:          ri.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Value:       getInt(tbl, "value"),
		Usable:      getBool(tbl, "usable", false),
		Type:        getString(tbl, "type"),
	}
	if it.Name == "" {
		it.Name = ri.id
	}
	if ou := getTable(tbl, "on_use"); ou != nil {
		up := c.update(ou, fmt.Sprintf("item %q on_use", ri.id))
		if len(up.use) > 0 {
			c.warnf("item %q on_use cannot consume other items", ri.id)
		}
		d := up.delta
		it.OnUse = &d
		it.Usable = true
	}
	return it
}

var knownEvents = map[string]bool{
	"scene_entered": true,
	"item_added":    true,
	"item_used":     true,
	"flag_changed":  true,
	"level_up":      true,
}

func (c *compiler) handler(rh rawHandler) types.EventHandler {
	where := fmt.Sprintf("handler On(%q)", rh.eventType)
	if !knownEvents[rh.eventType] {
		c.warnf("%s: unknown event type; it will never fire", where)
	}
	h := types.EventHandler{EventType: rh.eventType}
	if reqs := getTable(rh.table, "requires"); reqs != nil {
		h.Requires = c.requirements(reqs, where)
	}
	if ut := getTable(rh.table, "update"); ut != nil {
		up := c.update(ut, where)
		if len(up.use) > 0 {
			c.warnf("%s: handlers cannot consume items", where)
		}
		h.Update = up.delta
	}
	return h
}

// stringList reads a Lua array of strings, skipping anything else.
func stringList(v lua.LValue) []string {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}
