package redaction

import "regexp"

func compileFormFields(fields []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|&)(` + alternation(fields) + `)=([^&]*)`)
}

func (r *Rules) maskForm(raw []byte) []byte {
	return r.formFields.ReplaceAll(raw, []byte(`${1}${2}=`+Mask))
}
