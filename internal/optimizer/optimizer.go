// Package optimizer runs the built-in LIR passes selected by an optimization
// level. The passes are target independent: constant folding, dead code
// elimination, control flow simplification and inlining. Size levels favour
// fewer instructions over fewer calls.
package optimizer

import (
	"context"
	"fmt"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/trace"
)

// maxRounds bounds the fixpoint iteration of the aggressive levels.
const maxRounds = 8

// Pass transforms a module in place and reports whether it changed anything.
type Pass struct {
	Name string
	Run  func(m *lir.Module) (bool, error)
}

// Error reports the pass that failed.
type Error struct {
	Pass  string
	Level Level
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("optimizer %s: pass %s: %v", e.Level, e.Pass, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func perFunc(name string, fn func(*lir.Func) bool) Pass {
	return Pass{Name: name, Run: func(m *lir.Module) (bool, error) {
		changed := false
		for _, f := range m.Funcs {
			if f.IsDeclaration() {
				continue
			}
			if fn(f) {
				changed = true
			}
		}
		return changed, nil
	}}
}

func moduleFunc(name string, fn func(*lir.Module) bool) Pass {
	return Pass{Name: name, Run: func(m *lir.Module) (bool, error) { return fn(m), nil }}
}

// Pipeline returns the passes run at level l, in order.
func Pipeline(l Level) []Pass {
	fold := perFunc("fold", foldConstants)
	dce := perFunc("dce", eliminateDeadCode)
	switch l {
	case LevelNone:
		return nil
	case LevelLess:
		return []Pass{fold, dce}
	}
	threshold := l.inlineThreshold()
	return []Pass{
		fold,
		perFunc("simplifycfg", simplifyCFG),
		{Name: "inline", Run: func(m *lir.Module) (bool, error) { return inlineCalls(m, threshold) }},
		fold,
		perFunc("dse", eliminateDeadStores),
		dce,
		perFunc("simplifycfg", simplifyCFG),
		moduleFunc("globaldce", func(m *lir.Module) bool {
			fns := removeDeadFunctions(m)
			return removeDeadGlobals(m) || fns
		}),
	}
}

func (l Level) rounds() int {
	switch l {
	case LevelAggressive, LevelMinSize:
		return maxRounds
	}
	return 1
}

// Run optimizes m according to s. The module is modified in place; on error
// it may be left half transformed, so callers keep a clone to retry from.
func Run(ctx context.Context, m *lir.Module, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	passes := Pipeline(s.Level)
	for round := 0; round < s.Level.rounds(); round++ {
		changed := false
		for _, p := range passes {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, span := trace.Start(ctx, trace.ScopePass, p.Name)
			ok, err := p.Run(m)
			if err != nil {
				err = &Error{Pass: p.Name, Level: s.Level, Err: err}
				span.End(err)
				return err
			}
			if ok {
				span.Set("changed", "true")
			}
			span.End(nil)
			changed = changed || ok
		}
		if !changed {
			break
		}
	}
	return nil
}
