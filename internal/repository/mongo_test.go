package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCourseDocument_RoundTripKeepsRosterOrder(t *testing.T) {
	oid := primitive.NewObjectID()
	in := courseDocument{
		ID: oid, Subject: "CS", Number: "101", Title: "程序设计", Term: "2026 春季",
		InstructorID: "inst-1", StudentIDs: []string{"S2", "S1"},
	}

	raw, err := bson.Marshal(in)
	assert.NoError(t, err)

	var out courseDocument
	assert.NoError(t, bson.Unmarshal(raw, &out))

	course := out.toDomain()
	assert.Equal(t, oid.Hex(), course.ID)
	assert.Equal(t, []string{"S2", "S1"}, course.StudentIDs)
}

func TestCourseDocument_NilRosterBecomesEmpty(t *testing.T) {
	course := (&courseDocument{ID: primitive.NewObjectID()}).toDomain()
	assert.NotNil(t, course.StudentIDs)
	assert.Empty(t, course.StudentIDs)
}

func TestUserDocument_ToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	user := (&userDocument{ID: oid, Name: "张伟", Email: "zw@example.edu", Password: "hash", Role: "instructor"}).toDomain()

	assert.Equal(t, oid.Hex(), user.ID)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.EqualValues(t, "instructor", user.Role)
}
