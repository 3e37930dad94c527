package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidatorObjectID(t *testing.T) {
	v := NewValidator()

	type payload struct {
		ReceiverID string `json:"receiver_id" validate:"required,objectid"`
	}

	assert.NoError(t, v.Validate(payload{ReceiverID: primitive.NewObjectID().Hex()}))
	assert.Error(t, v.Validate(payload{ReceiverID: "not-an-object-id"}))
	assert.Error(t, v.Validate(payload{}))
}

func TestValidatorUsesJSONFieldNames(t *testing.T) {
	v := NewValidator()

	type payload struct {
		Email string `json:"email" validate:"required,email"`
	}

	err := v.Validate(payload{Email: "nope"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}
