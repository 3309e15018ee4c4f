package repository

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
)

func TestBuildConditionsMapsAliases(t *testing.T) {
	qb := NewQueryBuilder()
	qb.AddCondition("condition", "damaged")
	qb.AddCondition("location", "pune")

	ex := qb.BuildConditions(map[string]string{"condition": "item_condition"})

	assert.Equal(t, goqu.Ex{
		"item_condition": "damaged",
		"location":       "pune",
	}, ex)
}

func TestBuildConditionsEmpty(t *testing.T) {
	qb := NewQueryBuilder()

	assert.Empty(t, qb.BuildConditions(nil))
}
