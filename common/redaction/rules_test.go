package redaction

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	defaultHeaders      = []string{"authorization", "cookie", "set-cookie"}
	defaultFields       = []string{"pass", "old_pass", "new_pass", "otp", "password", "token"}
	defaultContentTypes = []string{"application/json", "text/plain", "application/x-www-form-urlencoded", "multipart/form-data"}
)

func defaultRules() *Rules {
	return NewRules(defaultHeaders, defaultFields, defaultContentTypes)
}

func TestMaskHeaders(t *testing.T) {
	rules := defaultRules()
	in := http.Header{
		"Authorization": {"Bearer abc"},
		"Cookie":        {"a=1", "b=2"},
		"X-Trace":       {"t-1"},
	}

	got := rules.MaskHeaders(in)

	require.Equal(t, http.Header{
		"Authorization": {"****"},
		"Cookie":        {"****", "****"},
		"X-Trace":       {"t-1"},
	}, got)
	// input untouched
	require.Equal(t, "Bearer abc", in.Get("Authorization"))
	// idempotent
	require.Equal(t, got, rules.MaskHeaders(got))
	require.Equal(t, "map[Authorization:[****] Cookie:[**** ****] X-Trace:[t-1]]", fmt.Sprint(got))
}

func TestMaskHeadersCaseInsensitive(t *testing.T) {
	rules := NewRules([]string{"X-API-KEY"}, nil, nil)
	got := rules.MaskHeaders(http.Header{"X-Api-Key": {"k"}, "x-api-key": {"raw"}})
	require.Equal(t, http.Header{"X-Api-Key": {"****"}, "x-api-key": {"****"}}, got)
	require.Nil(t, rules.MaskHeaders(nil))
}

func TestMaskBodyJSON(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name        string
		contentType string
		in          string
		want        string
	}{
		{
			name:        "password and user",
			contentType: "application/json",
			in:          `{"user":"a","password":"x"}`,
			want:        `{"user":"a","password":"****"}`,
		},
		{
			name:        "whitespace around colon",
			contentType: "application/json; charset=utf-8",
			in:          `{"otp" :  "123456", "keep":"me"}`,
			want:        `{"otp":"****", "keep":"me"}`,
		},
		{
			name:        "key case preserved",
			contentType: "application/json",
			in:          `{"Password":"x","TOKEN":"y"}`,
			want:        `{"Password":"****","TOKEN":"****"}`,
		},
		{
			name:        "escaped quote inside value",
			contentType: "application/json",
			in:          `{"password":"a\"b","next":"v"}`,
			want:        `{"password":"****","next":"v"}`,
		},
		{
			name:        "nested objects and vendor json",
			contentType: "application/vnd.api+json",
			in:          `{"data":{"old_pass":"o","new_pass":"n"}}`,
			want:        `{"data":{"old_pass":"****","new_pass":"****"}}`,
		},
		{
			name:        "non string value untouched",
			contentType: "application/json",
			in:          `{"otp":123456}`,
			want:        `{"otp":123456}`,
		},
		{
			name:        "field name must match exactly",
			contentType: "application/json",
			in:          `{"passport":"p","tokens":"t"}`,
			want:        `{"passport":"p","tokens":"t"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.MaskBody(tt.contentType, []byte(tt.in))
			require.Equal(t, tt.want, string(got))
			require.Equal(t, tt.want, string(rules.MaskBody(tt.contentType, got)))
		})
	}
}

func TestMaskBodyForm(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "first and middle", in: "otp=123&user=a&pass=z", want: "otp=****&user=a&pass=****"},
		{name: "case insensitive key", in: "PASSWORD=p&x=1", want: "PASSWORD=****&x=1"},
		{name: "empty value", in: "token=&a=b", want: "token=****&a=b"},
		{name: "substring key untouched", in: "xpass=1&passx=2", want: "xpass=1&passx=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.MaskBody("application/x-www-form-urlencoded", []byte(tt.in))
			require.Equal(t, tt.want, string(got))
		})
	}
}

func TestMaskBodyOtherTypes(t *testing.T) {
	rules := defaultRules()
	body := []byte(`{"password":"x"}`)

	require.Equal(t, body, rules.MaskBody("text/plain", body))
	require.Equal(t, body, rules.MaskBody("", body))
	require.Empty(t, rules.MaskBody("application/json", nil))

	noFields := NewRules(nil, nil, nil)
	require.Equal(t, body, noFields.MaskBody("application/json", body))
}

func TestIsLoggableContentType(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		contentType string
		want        bool
	}{
		{contentType: "", want: true},
		{contentType: "application/json", want: true},
		{contentType: "Application/JSON; charset=UTF-8", want: true},
		{contentType: "multipart/form-data; boundary=X", want: true},
		{contentType: "image/png", want: false},
		{contentType: "application/octet-stream", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			require.Equal(t, tt.want, rules.IsLoggableContentType(tt.contentType))
		})
	}

	require.False(t, NewRules(nil, nil, nil).IsLoggableContentType("application/json"))
}
