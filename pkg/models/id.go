package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh document id in ObjectID hex form, so ids look the
// same whichever store produced them.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
