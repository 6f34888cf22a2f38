package filter

import (
	"context"
	"fmt"

	"github.com/pokeriq/trainrec/core"
	"github.com/pokeriq/trainrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述准入条件，表达式为 false 时剔除。
//
//	content.difficulty <= user.level / 10 + 3
type ExprFilter struct {
	program *dsl.Program
}

// NewExprFilter 编译表达式。
func NewExprFilter(expr string) (*ExprFilter, error) {
	p, err := dsl.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("expr filter: %w", err)
	}
	return &ExprFilter{program: p}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, c *core.TrainingContent) (bool, error) {
	ok, err := f.program.Eval(c, rctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
