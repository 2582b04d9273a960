package redaction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func crlf(lines ...string) string {
	return strings.Join(lines, "\r\n")
}

func TestMaskBodyMultipart(t *testing.T) {
	rules := defaultRules()
	contentType := "multipart/form-data; boundary=X"

	in := crlf(
		"--X",
		`Content-Disposition: form-data; name="password"`,
		"",
		"hunter2",
		"--X",
		`Content-Disposition: form-data; name="user"`,
		"",
		"alice",
		"--X--",
		"",
	)
	want := crlf(
		"--X",
		`Content-Disposition: form-data; name="password"`,
		"",
		"****",
		"--X",
		`Content-Disposition: form-data; name="user"`,
		"",
		"alice",
		"--X--",
		"",
	)

	got := rules.MaskBody(contentType, []byte(in))
	require.Equal(t, want, string(got))
	require.Equal(t, want, string(rules.MaskBody(contentType, got)))
}

func TestMaskBodyMultipartEdgeCases(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name        string
		contentType string
		in          string
		want        string
	}{
		{
			name:        "missing boundary leaves body unchanged",
			contentType: "multipart/form-data",
			in:          crlf("--X", `Content-Disposition: form-data; name="otp"`, "", "1", "--X--"),
			want:        crlf("--X", `Content-Disposition: form-data; name="otp"`, "", "1", "--X--"),
		},
		{
			name:        "preamble and epilogue kept",
			contentType: "multipart/form-data; boundary=b1",
			in:          crlf("preamble text", "--b1", `Content-Disposition: form-data; name="token"`, "", "t0k", "--b1--", "epilogue"),
			want:        crlf("preamble text", "--b1", `Content-Disposition: form-data; name="token"`, "", "****", "--b1--", "epilogue"),
		},
		{
			name:        "lf only separators",
			contentType: `multipart/form-data; boundary="b2"`,
			in:          "--b2\nContent-Disposition: form-data; name=otp\n\n987\n--b2--\n",
			want:        "--b2\nContent-Disposition: form-data; name=otp\n\n****\n--b2--\n",
		},
		{
			name:        "file part with extra headers",
			contentType: "multipart/form-data; boundary=X",
			in:          crlf("--X", `Content-Disposition: form-data; name="pass"; filename="p.txt"`, "Content-Type: text/plain", "", "line1", "line2", "--X--"),
			want:        crlf("--X", `Content-Disposition: form-data; name="pass"; filename="p.txt"`, "Content-Type: text/plain", "", "****", "--X--"),
		},
		{
			name:        "filename alone is not a field name",
			contentType: "multipart/form-data; boundary=X",
			in:          crlf("--X", `Content-Disposition: form-data; name="doc"; filename="password"`, "", "data", "--X--"),
			want:        crlf("--X", `Content-Disposition: form-data; name="doc"; filename="password"`, "", "data", "--X--"),
		},
		{
			name:        "part without separator passes through",
			contentType: "multipart/form-data; boundary=X",
			in:          crlf("--X", `Content-Disposition: form-data; name="password"`, "--X--"),
			want:        crlf("--X", `Content-Disposition: form-data; name="password"`, "--X--"),
		},
		{
			name:        "truncated body masks the open part",
			contentType: "multipart/form-data; boundary=X",
			in:          crlf("--X", `Content-Disposition: form-data; name="password"`, "", "hun"),
			want:        crlf("--X", `Content-Disposition: form-data; name="password"`, "", "****"),
		},
		{
			name:        "boundary text inside a value is not a delimiter",
			contentType: "multipart/form-data; boundary=X",
			in:          crlf("--X", `Content-Disposition: form-data; name="password"`, "", "hun--Xter2", "--X", `Content-Disposition: form-data; name="user"`, "", "a--Xb", "--X--"),
			want:        crlf("--X", `Content-Disposition: form-data; name="password"`, "", "****", "--X", `Content-Disposition: form-data; name="user"`, "", "a--Xb", "--X--"),
		},
		{
			name:        "no delimiter in body",
			contentType: "multipart/form-data; boundary=X",
			in:          "password=plain",
			want:        "password=plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.MaskBody(tt.contentType, []byte(tt.in))
			require.Equal(t, tt.want, string(got))
		})
	}
}
