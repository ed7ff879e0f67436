package validation_test

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/sift/pkg/pdftext/pdftest"
	"github.com/JaimeStill/sift/pkg/validation"
)

func TestValidate(t *testing.T) {
	v := validation.New(1024, []string{".pdf"})
	valid := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

	tests := []struct {
		name     string
		data     []byte
		filename string
		err      error
	}{
		{"valid", valid, "report.pdf", nil},
		{"uppercase extension", valid, "REPORT.PDF", nil},
		{"too large", bytes.Repeat([]byte("a"), 1025), "report.pdf", validation.ErrSizeExceeded},
		{"size checked first", bytes.Repeat([]byte("a"), 2048), "notes.txt", validation.ErrSizeExceeded},
		{"wrong extension", valid, "report.docx", validation.ErrInvalidType},
		{"no extension", valid, "report", validation.ErrInvalidType},
		{"no header", []byte("hello world %%EOF"), "report.pdf", validation.ErrMalformed},
		{"no trailer", []byte("%PDF-1.4\n1 0 obj\n"), "report.pdf", validation.ErrMalformed},
		{"empty", nil, "report.pdf", validation.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.data, tt.filename)
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
			if err != nil {
				var verr *validation.Error
				if !errors.As(err, &verr) {
					t.Errorf("err %T is not *validation.Error", err)
				}
			}
		})
	}
}

func TestValidateTrailerWindow(t *testing.T) {
	v := validation.New(1<<20, []string{".pdf"})

	trailing := append([]byte("%PDF-1.4\n%%EOF"), bytes.Repeat([]byte("\n"), 100)...)
	if _, err := v.Validate(trailing, "a.pdf"); err != nil {
		t.Errorf("trailing whitespace rejected: %v", err)
	}

	buried := append([]byte("%PDF-1.4\n%%EOF"), bytes.Repeat([]byte("x"), 2048)...)
	if _, err := v.Validate(buried, "a.pdf"); !errors.Is(err, validation.ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestValidateBuiltDocument(t *testing.T) {
	data := pdftest.Build("hello")
	v := validation.New(1<<20, []string{"pdf"})

	result, err := v.Validate(data, "../../etc/hello world.pdf")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Filename != "hello_world.pdf" {
		t.Errorf("filename = %q, want hello_world.pdf", result.Filename)
	}
	if result.Size != int64(len(data)) {
		t.Errorf("size = %d, want %d", result.Size, len(data))
	}
}

func TestErrorsUseSanitizedName(t *testing.T) {
	v := validation.New(10, []string{".pdf"})
	_, err := v.Validate(bytes.Repeat([]byte("a"), 20), "../secret\n.pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "..") || strings.Contains(err.Error(), "\n") {
		t.Errorf("error leaks raw filename: %q", err.Error())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd.pdf", "passwd.pdf"},
		{`..\..\windows\system.pdf`, "system.pdf"},
		{"my report (final).pdf", "my_report_(final).pdf"},
		{`a<b>c:d"e|f?g*h.pdf`, "a_b_c_d_e_f_g_h.pdf"},
		{"name\x00\r\n.pdf", "name.pdf"},
		{"résumé.pdf", "rsum.pdf"},
		{"report..pdf", "report.pdf"},
		{".hidden.pdf", "hidden.pdf"},
		{"", "unnamed.pdf"},
		{"..", "unnamed.pdf"},
		{".pdf", "unnamed.pdf"},
		{"日本.pdf", "unnamed.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := validation.SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	got := validation.SanitizeFilename(strings.Repeat("a", 300) + ".pdf")
	if len(got) != 255 {
		t.Errorf("length = %d, want 255", len(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Errorf("extension lost: %q", got[len(got)-8:])
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{validation.ErrSizeExceeded, http.StatusRequestEntityTooLarge},
		{validation.ErrInvalidType, http.StatusBadRequest},
		{validation.ErrMalformed, http.StatusBadRequest},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := validation.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
