package store

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorClasses(t *testing.T) {
	connErr := errors.Wrap(NewConnectionError(io.EOF, "selecting students"), "refreshing")
	assert.True(t, IsConnection(connErr))
	assert.True(t, errors.Is(connErr, io.EOF))
	assert.False(t, IsQuery(connErr))
	assert.Equal(t, "refreshing: selecting students: store connection failed: EOF", connErr.Error())

	qErr := errors.Wrap(&QueryError{Table: "grades", Code: "42P01", Message: "relation does not exist"}, "selecting")
	assert.True(t, IsQuery(qErr))
	assert.False(t, IsConnection(qErr))
	assert.Equal(t, "selecting: grades: relation does not exist (42P01)", qErr.Error())
}
