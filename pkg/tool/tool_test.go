package tool

import (
	"strings"
	"testing"

	"go.uber.org/mock/gomock"
)

func TestToOpenAIFunction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tool := NewMockTool(ctrl)
	tool.EXPECT().Name().Return("validator_tool")
	tool.EXPECT().Description().Return("Validate a strategy step's outcome")
	tool.EXPECT().Parameters().Return(ParameterSchema{
		Type: "object",
	})

	fn := ToOpenAIFunction(tool)
	function, ok := fn["function"].(map[string]any)
	if !ok {
		t.Fatalf("expected function map in response")
	}
	if function["name"] != "validator_tool" {
		t.Fatalf("expected function name validator_tool, got %v", function["name"])
	}
	if function["description"] != "Validate a strategy step's outcome" {
		t.Fatalf("unexpected description: %v", function["description"])
	}
}

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	SetResultEncoding(false)
	t.Cleanup(func() { SetResultEncoding(true) })

	env := Ok(map[string]any{"links_found": 2})
	jsonStr, err := env.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON returned err: %v", err)
	}
	parsed, err := ParseEnvelope(jsonStr)
	if err != nil {
		t.Fatalf("ParseEnvelope returned err: %v", err)
	}
	if parsed.OK != env.OK {
		t.Fatalf("parsed envelope mismatch: %+v", parsed)
	}
	data, ok := parsed.Output.(map[string]any)
	if !ok {
		t.Fatalf("expected map output, got %#v", parsed.Output)
	}
	if data["links_found"].(float64) != 2 {
		t.Fatalf("output not preserved: %+v", data)
	}
}

func TestEnvelopeToJSONUsesToonByDefault(t *testing.T) {
	SetResultEncoding(true)
	t.Cleanup(func() { SetResultEncoding(true) })

	jsonStr, err := Ok(true).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON returned err: %v", err)
	}
	if strings.HasPrefix(jsonStr, "{") {
		t.Fatalf("expected TOON payload, got %s", jsonStr)
	}
}
