package itemgate_test

import (
	"testing"

	"github.com/sagarc03/itemgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePresentationType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    itemgate.PresentationType
		wantErr bool
	}{
		{name: "original", input: "ORIGINAL", want: itemgate.PresentationOriginal},
		{name: "lower case", input: "preview", want: itemgate.PresentationPreview},
		{name: "mixed case", input: "Preferred", want: itemgate.PresentationPreferred},
		{name: "long form", input: "ORIGINAL_PRESENTATION_TYPE", want: itemgate.PresentationOriginal},
		{name: "long form lower case", input: "preview_presentation_type", want: itemgate.PresentationPreview},
		{name: "unknown", input: "NOPE", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "suffix only", input: "_PRESENTATION_TYPE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := itemgate.ParsePresentationType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, itemgate.ErrUnknownPresentation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    itemgate.Encoding
		wantErr bool
	}{
		{name: "absent", input: "", want: itemgate.EncodingIdentity},
		{name: "none", input: "none", want: itemgate.EncodingIdentity},
		{name: "null", input: "NULL", want: itemgate.EncodingIdentity},
		{name: "identity", input: "Identity", want: itemgate.EncodingIdentity},
		{name: "base64 lower case", input: "base64", want: itemgate.EncodingBase64},
		{name: "base64 upper case", input: "BASE64", want: itemgate.EncodingBase64},
		{name: "unsupported", input: "gzip", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := itemgate.ParseEncoding(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, itemgate.ErrUnsupportedEncoding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncoding_Apply(t *testing.T) {
	data := []byte{0x00, 0xff, 'h', 'i'}

	assert.Equal(t, data, itemgate.EncodingIdentity.Apply(data))
	assert.Equal(t, []byte("AP9oaQ=="), itemgate.EncodingBase64.Apply(data))
	assert.Empty(t, itemgate.EncodingBase64.Apply(nil))
}

func TestOwnerIdentity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		owner   itemgate.OwnerIdentity
		wantErr bool
	}{
		{name: "valid", owner: itemgate.OwnerIdentity{Name: "alice", ID: "42"}},
		{name: "blank name", owner: itemgate.OwnerIdentity{Name: "", ID: "42"}, wantErr: true},
		{name: "whitespace id", owner: itemgate.OwnerIdentity{Name: "alice", ID: " "}, wantErr: true},
		{name: "slash in name", owner: itemgate.OwnerIdentity{Name: "a/b", ID: "42"}, wantErr: true},
		{name: "dot dot id", owner: itemgate.OwnerIdentity{Name: "alice", ID: ".."}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.owner.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, itemgate.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestObjectKey(t *testing.T) {
	o := itemgate.OwnerIdentity{Name: "alice", ID: "42"}

	assert.Equal(t, "alice/42/", o.Prefix())
	assert.Equal(t, "alice/42/ORIGINAL/notes.txt", itemgate.ObjectKey(o, itemgate.PresentationOriginal, "notes.txt"))
	assert.Equal(t, "alice/42/PREVIEW/cat.jpg", itemgate.ObjectKey(o, itemgate.PresentationPreview, "cat.jpg"))
}

func TestClassifyContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", itemgate.ItemTypeImage},
		{"image/jpeg; q=1", itemgate.ItemTypeImage},
		{"text/plain; charset=utf-8", itemgate.ItemTypeText},
		{"application/pdf", itemgate.ItemTypeUnknown},
		{"", itemgate.ItemTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, itemgate.ClassifyContentType(tt.contentType))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", itemgate.DetectContentType("a.PNG", nil))
	assert.Equal(t, "text/plain; charset=utf-8", itemgate.DetectContentType("noext", []byte("hello")))
}

func TestTables_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tables  itemgate.Tables
		wantErr bool
	}{
		{name: "valid", tables: itemgate.Tables{Objects: "itemgate_objects"}},
		{name: "empty", tables: itemgate.Tables{}, wantErr: true},
		{name: "upper case", tables: itemgate.Tables{Objects: "Objects"}, wantErr: true},
		{name: "injection", tables: itemgate.Tables{Objects: "x; DROP TABLE y"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tables.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
