package id

import (
	"github.com/google/uuid"
)

func Generate() uuid.UUID {
	return uuid.New()
}

func IsValidUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}
