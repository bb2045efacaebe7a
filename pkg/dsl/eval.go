// Package dsl 提供基于 CEL 的规则表达式求值，用于策略化的候选过滤。
// 表达式里可访问 item（候选属性）与 user（用户画像摘要）两个变量，例如：
//
//	item.price > 7.0 && !("Mathematik" in user.preferred_categories)
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Evaluator 编译并缓存 CEL 表达式，线程安全。
type Evaluator struct {
	once sync.Once
	env  *cel.Env
	err  error

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewEvaluator 创建求值器（环境惰性初始化）。
func NewEvaluator() *Evaluator {
	return &Evaluator{programs: make(map[string]cel.Program)}
}

func (e *Evaluator) init() {
	e.once.Do(func() {
		e.env, e.err = cel.NewEnv(
			cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("user", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
}

// EvalBool 求值布尔表达式。表达式结果不是 bool 时返回错误。
func (e *Evaluator) EvalBool(expr string, vars map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("dsl eval %q: %w", expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl eval %q: result is %T, want bool", expr, out.Value())
	}
	return b, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.init()
	if e.err != nil {
		return nil, fmt.Errorf("dsl env: %w", e.err)
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl compile %q: %w", expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl program %q: %w", expr, err)
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()
	return prg, nil
}
