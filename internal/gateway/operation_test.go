package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryKeepsOrder(t *testing.T) {
	reg, err := NewRegistry(
		Operation{Name: "b", Method: "GET", Path: "/b"},
		Operation{Name: "a", Method: "GET", Path: "/a"},
	)
	require.NoError(t, err)

	ops := reg.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "b", ops[0].Name)
	assert.Equal(t, "a", ops[1].Name)
}

func TestNewRegistryRejectsBadOperations(t *testing.T) {
	cases := map[string][]Operation{
		"duplicate name": {
			{Name: "a", Method: "GET", Path: "/a"},
			{Name: "a", Method: "GET", Path: "/b"},
		},
		"bad method":     {{Name: "a", Method: "TRACE", Path: "/a"}},
		"relative path":  {{Name: "a", Method: "GET", Path: "a"}},
		"dup field":      {{Name: "a", Method: "GET", Path: "/a", Fields: []Field{{Name: "x"}, {Name: "x"}}}},
		"path field":     {{Name: "a", Method: "GET", Path: "/a", Fields: []Field{{Name: "x", In: InPath, Required: true}}}},
		"optional path":  {{Name: "a", Method: "GET", Path: "/a/{x}", Fields: []Field{{Name: "x", In: InPath}}}},
		"unknown member": {{Name: "a", Method: "GET", Path: "/a", Exclusive: [][]string{{"x", "y"}}}},
	}
	for name, ops := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(ops...)
			assert.Error(t, err)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	_, err = reg.Lookup("nope")
	var unknown *UnknownOperationError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "unknown operation: nope", err.Error())
}

func TestRouteSubstitutesPathFields(t *testing.T) {
	reg, err := NewRegistry(Operation{
		Name:   "get_job",
		Method: "GET",
		Path:   "/api/2.1/jobs/{job_id}/runs",
		Fields: []Field{{Name: "job_id", Kind: KindString, Required: true, In: InPath}},
	})
	require.NoError(t, err)

	method, path, err := reg.Route("get_job", Params{"job_id": "a b"})
	require.NoError(t, err)
	assert.Equal(t, "GET", method)
	assert.Equal(t, "/api/2.1/jobs/a%20b/runs", path)
}

func TestDescriptorSchema(t *testing.T) {
	op := sampleOperation()
	desc := op.Descriptor()

	require.NotNil(t, desc.InputSchema)
	assert.Equal(t, "object", desc.InputSchema.Type)
	assert.Equal(t, []string{"name"}, desc.InputSchema.Required)

	size := desc.InputSchema.Properties["size"]
	assert.Equal(t, "string", size.Type)
	assert.Equal(t, []string{"Small", "Large"}, size.Enum)
	assert.Equal(t, "Small", size.Default)

	assert.Equal(t, "integer", desc.InputSchema.Properties["count"].Type)
	assert.Nil(t, desc.InputSchema.Properties["tags"].Default)
}
