package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrKey(t *testing.T) {
	key := strKey("user_id", "u1")
	require.Len(t, key, 1)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "u1"}, key["user_id"])
}

func TestCompositeKey(t *testing.T) {
	key := compositeKey("email", "a@x.com", "purpose", "registration")
	require.Len(t, key, 2)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "a@x.com"}, key["email"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "registration"}, key["purpose"])
}

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{"enable": false})
	require.NoError(t, err)

	assert.Equal(t, "SET #f0 = :v0", expr)
	assert.Equal(t, map[string]string{"#f0": "enable"}, names)
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: false}, values[":v0"])
}

func TestBuildUpdateExpr_MultipleFields(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		"password_hash": "$2a$10$hash",
		"enable":        1,
	})
	require.NoError(t, err)

	assert.Len(t, names, 2)
	assert.Len(t, values, 2)
	assert.Contains(t, expr, "SET ")
	assert.Contains(t, expr, ", ")

	// Every placeholder in the expression resolves to a real name and value.
	for nameKey, field := range names {
		assert.Contains(t, expr, nameKey)
		assert.Contains(t, []string{"password_hash", "enable"}, field)
	}
	for valueKey := range values {
		assert.Contains(t, expr, valueKey)
	}
}

func TestBuildUpdateExpr_Empty(t *testing.T) {
	_, _, _, err := buildUpdateExpr(map[string]interface{}{})
	require.Error(t, err)
}
