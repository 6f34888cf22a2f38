package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/pokeriq/trainrec/core"
)

var (
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("content", cel.DynType),
			cel.Variable("user", cel.DynType),
			cel.Variable("request", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的内容准入表达式，使用 CEL 语法，线程安全，可复用。
//
// 可用变量：
//   - content：id / type / category / difficulty / tags / skill_areas / estimated_minutes
//   - user：level / player_type / skills / weaknesses / focus_areas / experiment_group
//   - request：algorithm / limit / available_minutes / target_skills
//
// 示例：
//   - `content.difficulty <= user.level / 10 + 3`
//   - `content.type != "assessment" || user.level >= 30`
//   - `"gto" in content.tags`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，空表达式恒为 true。
func Compile(expr string) (*Program, error) {
	p := &Program{expr: expr}
	if expr == "" {
		return p, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	p.prg = prg
	return p, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单条内容求值。
func (p *Program) Eval(content *core.TrainingContent, rctx *core.RecommendContext) (bool, error) {
	if p.prg == nil {
		return true, nil
	}
	out, _, err := p.prg.Eval(buildInput(content, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func stringsToAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func buildInput(c *core.TrainingContent, rctx *core.RecommendContext) map[string]any {
	content := map[string]any{
		"id":                c.ID,
		"type":              string(c.Type),
		"title":             c.Title,
		"category":          c.Category,
		"difficulty":        int64(c.ClampedDifficulty()),
		"tags":              stringsToAny(c.Tags),
		"skill_areas":       stringsToAny(c.SkillAreas),
		"estimated_minutes": int64(c.EstimatedMinutes),
	}

	user := map[string]any{
		"level":            int64(1),
		"player_type":      "",
		"skills":           map[string]any{},
		"weaknesses":       []any{},
		"focus_areas":      []any{},
		"experiment_group": "",
	}
	request := map[string]any{
		"algorithm":         "",
		"limit":             int64(0),
		"available_minutes": int64(0),
		"target_skills":     []any{},
	}
	if rctx != nil {
		user["level"] = int64(rctx.Level())
		user["experiment_group"] = rctx.ExperimentGroup
		if p := rctx.Profile; p != nil {
			skills := make(map[string]any, len(p.Skills))
			for k, v := range p.Skills {
				skills[k] = v
			}
			user["player_type"] = p.PlayerType
			user["skills"] = skills
			user["weaknesses"] = stringsToAny(p.Weaknesses)
			user["focus_areas"] = stringsToAny(p.FocusAreas)
		}
		if r := rctx.Request; r != nil {
			request["algorithm"] = string(r.Algorithm)
			request["limit"] = int64(r.Limit)
			request["available_minutes"] = int64(r.Context.AvailableMinutes)
			request["target_skills"] = stringsToAny(r.Context.TargetSkills)
		}
	}

	return map[string]any{
		"content": content,
		"user":    user,
		"request": request,
	}
}
