package scripting

import (
	"fmt"
	"maps"
	"slices"

	"github.com/plus3/framediff/frame"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine runs a Lua scenario against a timeline. Scenarios drive entities through
// the global "frame" table and define on_turn(n), called once per turn.
// Single-goroutine access only.
type Engine struct {
	vm       *lua.LState
	timeline *frame.Timeline
	log      *zap.Logger
}

// NewEngine creates a Lua VM bound to the given timeline
func NewEngine(tl *frame.Timeline, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	e := &Engine{vm: vm, timeline: tl, log: log}

	mod := vm.NewTable()
	vm.SetFuncs(mod, map[string]lua.LGFunction{
		"spawn":        e.luaSpawn,
		"set":          e.luaSet,
		"commit":       e.luaCommit,
		"commit_world": e.luaCommitWorld,
		"turn":         e.luaTurn,
		"log":          e.luaLog,
	})
	vm.SetGlobal("frame", mod)
	vm.SetGlobal("TURN_END", lua.LNumber(frame.TurnEnd))

	return e
}

// Close releases the Lua VM
func (e *Engine) Close() {
	e.vm.Close()
}

// LoadFile executes a scenario file
func (e *Engine) LoadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua scenario", zap.String("file", path))
	return nil
}

// LoadString executes scenario source held in memory
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	return nil
}

// RunTurn calls on_turn with the current turn number, when the scenario defines it,
// then advances the timeline. A failing on_turn leaves the turn open.
func (e *Engine) RunTurn() ([]*frame.State, error) {
	if err := e.CallTurn(e.timeline.Turn()); err != nil {
		return nil, err
	}
	return e.timeline.Advance(), nil
}

// CallTurn invokes on_turn(turn) without advancing the timeline.
func (e *Engine) CallTurn(turn int) error {
	fn := e.vm.GetGlobal("on_turn")
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(turn)); err != nil {
		return fmt.Errorf("on_turn(%d): %w", turn, err)
	}
	return nil
}

// System adapts the engine to a frame.System. The first script error is kept
// in Err and later turns are skipped.
type System struct {
	Engine *Engine
	Err    error
}

func (s *System) Execute(uf *frame.UpdateFrame) {
	if s.Err != nil {
		return
	}
	s.Err = s.Engine.CallTurn(uf.Turn)
}

// frame.spawn([props]) -> id
func (e *Engine) luaSpawn(L *lua.LState) int {
	props := map[string]any{}

	if tb, ok := L.Get(1).(*lua.LTable); ok {
		var convErr error
		tb.ForEach(func(k, v lua.LValue) {
			if convErr != nil {
				return
			}
			key, ok := k.(lua.LString)
			if !ok {
				convErr = fmt.Errorf("property keys must be strings, got %s", k.Type())
				return
			}
			value, err := toGo(v)
			if err != nil {
				convErr = fmt.Errorf("property %q: %w", string(key), err)
				return
			}
			props[string(key)] = value
		})
		if convErr != nil {
			L.ArgError(1, convErr.Error())
			return 0
		}
	}

	entity := e.timeline.Registry().Create()
	for _, key := range slices.Sorted(maps.Keys(props)) {
		entity.Set(key, props[key])
	}

	L.Push(lua.LNumber(entity.Id()))
	return 1
}

// frame.set(id, key, value)
func (e *Engine) luaSet(L *lua.LState) int {
	entity := e.checkEntity(L, 1)
	key := L.CheckString(2)
	value, err := toGo(L.Get(3))
	if err != nil {
		L.ArgError(3, err.Error())
		return 0
	}
	entity.Set(key, value)
	return 0
}

// frame.commit(t, force, id, ...)
func (e *Engine) luaCommit(L *lua.LState) int {
	t := frame.FrameTime(L.CheckNumber(1))
	force := L.ToBool(2)

	ids := make([]frame.EntityId, 0, L.GetTop()-2)
	for i := 3; i <= L.GetTop(); i++ {
		ids = append(ids, frame.EntityId(L.CheckNumber(i)))
	}

	if err := e.timeline.CommitEntity(t, force, ids...); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// frame.commit_world(t)
func (e *Engine) luaCommitWorld(L *lua.LState) int {
	t := frame.FrameTime(L.OptNumber(1, lua.LNumber(frame.TurnEnd)))
	if err := e.timeline.CommitWorld(t); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// frame.turn() -> n
func (e *Engine) luaTurn(L *lua.LState) int {
	L.Push(lua.LNumber(e.timeline.Turn()))
	return 1
}

// frame.log(msg)
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info(L.CheckString(1), zap.Int("turn", e.timeline.Turn()))
	return 0
}

func (e *Engine) checkEntity(L *lua.LState, n int) *frame.Entity {
	id := frame.EntityId(L.CheckNumber(n))
	entity, ok := e.timeline.Registry().Get(id)
	if !ok {
		L.ArgError(n, fmt.Sprintf("unknown entity %d", id))
		return nil
	}
	return entity
}

// toGo converts a Lua value into a property value. Numbers become float64.
func toGo(v lua.LValue) (any, error) {
	switch v := v.(type) {
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case lua.LBool:
		return bool(v), nil
	case *lua.LNilType:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported property type %s", v.Type())
	}
}
