package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewRegistry(logger, nil)
}

func echoDef(name string) Definition {
	return Definition{
		Name:        name,
		Description: "echoes the name parameter",
		Params: []Param{
			{Name: "name", Type: "string", Description: "what to echo", Required: true},
			{Name: "count", Type: "number", Description: "optional repeat count"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return args["name"].(string), nil
		},
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(echoDef("echo")))
	err := r.Register(echoDef("echo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, 1, r.Count())
}

func TestRegisterRejectsNilHandler(t *testing.T) {
	r := testRegistry()
	err := r.Register(Definition{Name: "broken"})
	require.Error(t, err)
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(echoDef("zeta")))
	require.NoError(t, r.Register(echoDef("alpha")))
	require.NoError(t, r.Register(echoDef("mid")))

	defs := r.List()
	require.Len(t, defs, 3)
	assert.Equal(t, "zeta", defs[0].Name)
	assert.Equal(t, "alpha", defs[1].Name)
	assert.Equal(t, "mid", defs[2].Name)
}

func TestInvokeUnknownTool(t *testing.T) {
	r := testRegistry()
	_, err := r.Invoke(context.Background(), "t1", "nope", nil)
	require.Error(t, err)

	te, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, ErrUnknownTool, te.Kind)
}

func TestInvokeMissingRequiredParam(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(echoDef("echo")))

	_, err := r.Invoke(context.Background(), "t1", "echo", map[string]interface{}{})
	require.Error(t, err)

	te, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, ErrSchemaViolation, te.Kind)
	assert.Contains(t, err.Error(), "name")
}

func TestInvokeWrongType(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(echoDef("echo")))

	_, err := r.Invoke(context.Background(), "t1", "echo", map[string]interface{}{"name": 42.0})
	require.Error(t, err)

	te, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, ErrSchemaViolation, te.Kind)
}

func TestInvokeUnexpectedParam(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(echoDef("echo")))

	_, err := r.Invoke(context.Background(), "t1", "echo", map[string]interface{}{
		"name":  "pikachu",
		"extra": true,
	})
	require.Error(t, err)

	te, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, ErrSchemaViolation, te.Kind)
}

func TestInvokeHandlerFailure(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(Definition{
		Name:        "failing",
		Description: "always fails",
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "", errors.New("boom")
		},
	}))

	_, err := r.Invoke(context.Background(), "t1", "failing", nil)
	require.Error(t, err)

	te, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, ErrHandlerFailure, te.Kind)
	assert.Contains(t, err.Error(), "boom")
}

func TestInvokeSuccess(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(echoDef("echo")))

	result, err := r.Invoke(context.Background(), "t1", "echo", map[string]interface{}{
		"name":  "pikachu",
		"count": 2.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "pikachu", result)
}

func TestOpenAITools(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(echoDef("echo")))

	specs := r.OpenAITools()
	require.Len(t, specs, 1)
	assert.Equal(t, openai.ToolTypeFunction, specs[0].Type)
	assert.Equal(t, "echo", specs[0].Function.Name)

	params, ok := specs[0].Function.Parameters.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"name"}, params["required"])

	props, ok := params["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "count")
}

func TestOpenAIToolsArrayParamCarriesItems(t *testing.T) {
	r := testRegistry()
	require.NoError(t, r.Register(Definition{
		Name:        "rank",
		Description: "ranks the given subjects",
		Params: []Param{
			{Name: "subjects", Type: "array", Description: "names to rank", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "ok", nil
		},
	}))

	specs := r.OpenAITools()
	require.Len(t, specs, 1)

	params, ok := specs[0].Function.Parameters.(map[string]interface{})
	require.True(t, ok)
	props, ok := params["properties"].(map[string]interface{})
	require.True(t, ok)
	prop, ok := props["subjects"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "array", prop["type"])

	items, ok := prop["items"].(map[string]interface{})
	require.True(t, ok, "array parameter must declare an items schema")
	assert.Equal(t, "string", items["type"])
}

func TestTruncate(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	out := truncate(string(long))
	assert.Len(t, out, maxPreviewLen+3)
	assert.Equal(t, "...", out[len(out)-3:])
}
