package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "mixed keys",
			code:    "E001",
			wantMsg: "Mixed keyed and unkeyed siblings",
			wantCat: CategoryStructural,
		},
		{
			name:    "runtime error",
			code:    "E041",
			wantMsg: "Container is not mounted",
			wantCat: CategoryRuntime,
		},
		{
			name:    "protocol error",
			code:    "E060",
			wantMsg: "WebSocket connection failed",
			wantCat: CategoryProtocol,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryRuntime, "container %q not found", "app")
	if err.Message != `container "app" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `container "app" not found`)
	}
	if err.Category != CategoryRuntime {
		t.Errorf("Category = %q, want %q", err.Category, CategoryRuntime)
	}
}

func TestError_Error(t *testing.T) {
	err := New("E006").WithReason("key %q", "a").WithPath("ul")
	got := err.Error()
	want := `E006: Duplicate key in children list: key "a" (at ul)`
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := &Error{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}
}

func TestError_IsStructural(t *testing.T) {
	if !stderrors.Is(New("E001"), ErrStructural) {
		t.Error("E001 should match ErrStructural")
	}
	if stderrors.Is(New("E060"), ErrStructural) {
		t.Error("protocol errors should not match ErrStructural")
	}

	wrapped := fmt.Errorf("mount: %w", New("E003"))
	if !IsStructural(wrapped) {
		t.Error("IsStructural should see through fmt.Errorf wrapping")
	}
	if IsStructural(stderrors.New("plain")) {
		t.Error("plain errors are not structural")
	}
}

func TestError_Wrap(t *testing.T) {
	inner := stderrors.New("inner")
	err := New("E120").Wrap(inner)
	if !stderrors.Is(err, inner) {
		t.Error("Unwrap() should expose wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E001") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	e := New("E001")
	if FromError(fmt.Errorf("ctx: %w", e), "E002") != e {
		t.Error("FromError should return a wrapped *Error as-is")
	}

	stdErr := &testError{msg: "test error"}
	result := FromError(stdErr, "E120")
	if result.Wrapped != stdErr {
		t.Error("Standard error should be wrapped")
	}
	if result.Code != "E120" {
		t.Errorf("Code = %q, want E120", result.Code)
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E001").
		WithPath("div > ul").
		WithSuggestion("Give every <li> a key, or none of them").
		Wrap(stderrors.New("li[2] has no key"))

	formatted := err.Format()

	for _, want := range []string{
		"ERROR E001: Mixed keyed and unkeyed siblings",
		"at div > ul",
		"Hint: Give every <li> a key",
		"Caused by: li[2] has no key",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q in:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E002").WithPath("app > Counter")
	compact := err.FormatCompact()

	want := "app > Counter: E002: Component definition has no draw hook"
	if compact != want {
		t.Errorf("FormatCompact() = %q, want %q", compact, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E005").WithReason("attribute %q", "data").WithPath("div")
	json := err.FormatJSON()

	for _, want := range []string{
		`"code":"E005"`,
		`"category":"structural"`,
		`"message":"Unrecognized attribute value"`,
		`"reason":"attribute \"data\""`,
		`"path":"div"`,
	} {
		if !strings.Contains(json, want) {
			t.Errorf("FormatJSON() missing %s in %s", want, json)
		}
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, fmt.Errorf("render: %w", New("E004")))
	if !strings.Contains(buf.String(), "ERROR E004") {
		t.Errorf("PrintError() = %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, stderrors.New("boom"))
	if !strings.Contains(buf.String(), "ERROR: boom") {
		t.Errorf("PrintError() = %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() should return codes")
	}
	if codes[0] != "E001" {
		t.Errorf("codes[0] = %q, want E001 (sorted)", codes[0])
	}
}

func TestGetTemplate(t *testing.T) {
	template, ok := GetTemplate("E001")
	if !ok {
		t.Error("E001 should exist")
	}
	if template.Category != CategoryStructural {
		t.Error("Template category mismatch")
	}

	_, ok = GetTemplate("E999")
	if ok {
		t.Error("E999 should not exist")
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{
		Category: CategoryRuntime,
		Message:  "Custom test error",
		Detail:   "This is a test error",
		DocURL:   "https://test.dev/E999",
	})
	defer delete(registry, "E999")

	err := New("E999")
	if err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
	DisableColors()
	defer EnableColors()
	if !strings.Contains(err.Format(), "Learn more: https://test.dev/E999") {
		t.Errorf("Format() missing doc link:\n%s", err.Format())
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	got = wrapText("", 10)
	if len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
