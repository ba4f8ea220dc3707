package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type moveRequest struct {
	ToStage string `validate:"required,stage_name"`
	Limit   int    `validate:"min=0,max=10"`
}

func TestStageNameTag(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(moveRequest{ToStage: "offer_sent"}))
	assert.NoError(t, v.Var("needs_analysis2", TagStageName))

	assert.Error(t, v.Struct(moveRequest{}))
	assert.Error(t, v.Struct(moveRequest{ToStage: "Offer Sent"}))
	assert.Error(t, v.Var("1lead", TagStageName))
	assert.Error(t, v.Struct(moveRequest{ToStage: "lead", Limit: 11}))
}
