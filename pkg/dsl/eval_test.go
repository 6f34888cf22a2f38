package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec/core"
)

func TestProgram_Eval(t *testing.T) {
	content := &core.TrainingContent{
		ID:         "c1",
		Type:       core.ContentAssessment,
		Category:   "preflop",
		Difficulty: 6,
		Tags:       []string{"gto", "3bet"},
	}
	profile := core.NewUserSkillProfile("u1")
	profile.Level = 25
	rctx := core.NewRecommendContext(&core.Request{UserID: "u1", Limit: 5}, profile, nil, nil)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"empty is true", "", true},
		{"difficulty above level band", "content.difficulty <= user.level / 10 + 3", false},
		{"difficulty within level band", "content.difficulty <= user.level / 10 + 4", true},
		{"assessment gate", `content.type != "assessment" || user.level >= 30`, false},
		{"tag membership", `"gto" in content.tags`, true},
		{"request limit", "request.limit == 5", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prg, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := prg.Eval(content, rctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile("content.difficulty <=")
	assert.Error(t, err)

	prg, err := Compile("content.difficulty + 1")
	require.NoError(t, err)
	_, err = prg.Eval(&core.TrainingContent{ID: "c1"}, nil)
	assert.Error(t, err, "non-boolean result")
}
