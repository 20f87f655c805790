package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFolders_FlatKeys(t *testing.T) {
	data := []byte(`[
		{"name": "Town", "externalId": "F1", "color": "#ff0000"},
		{"name": "Docks", "externalId": "F2", "parentExternalId": "F1", "sorting": "m"}
	]`)

	records, err := DecodeFolders(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Town", *records[0].Name)
	assert.Equal(t, "F1", records[0].ExternalID)
	assert.Empty(t, records[0].ParentExternalID)
	assert.Equal(t, `"#ff0000"`, string(records[0].Extra["color"]))
	assert.NotContains(t, records[0].Extra, KeyName)
	assert.NotContains(t, records[0].Extra, KeyExternalID)

	assert.Equal(t, 1, records[1].Index)
	assert.Equal(t, "F1", records[1].ParentExternalID)
	assert.Len(t, records[1].Extra, 1)
}

func TestDecodeFolders_NestedFlags(t *testing.T) {
	data := []byte(`[{"name": "Cellar", "flags": {"zdnd": {"id": "cellar", "pid": "house"}}}]`)

	records, err := DecodeFolders(data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "cellar", records[0].ExternalID)
	assert.Equal(t, "house", records[0].ParentExternalID)
	// flags is not a typed field, so it survives untouched
	assert.JSONEq(t, `{"zdnd": {"id": "cellar", "pid": "house"}}`, string(records[0].Extra["flags"]))
}

func TestDecodeFolders_FlatKeyWins(t *testing.T) {
	data := []byte(`[{"name": "A", "externalId": "flat", "flags": {"zdnd": {"id": "nested"}}}]`)

	records, err := DecodeFolders(data)
	require.NoError(t, err)
	assert.Equal(t, "flat", records[0].ExternalID)
}

func TestDecodeFolders_Malformed(t *testing.T) {
	data := []byte(`[{"externalId": "F1"}, {"name": null, "externalId": "F2"}, {"name": 7}, "junk"]`)

	records, err := DecodeFolders(data)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.True(t, r.Malformed(), "record %d should be malformed", r.Index)
	}
	assert.Equal(t, "F2", records[1].ExternalID)
	assert.Empty(t, records[3].Extra)
}

func TestDecodeJournals(t *testing.T) {
	data := []byte(`[{
		"name": "Smuggled Goods",
		"flags": {"zdnd": {"id": "SmuggledGoods", "folder": "F1"}},
		"content": "<div class=\"zlink\">@JournalEntry[zid=Other]{Other}</div>",
		"permission": {"default": 2}
	}]`)

	records, err := DecodeJournals(data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.False(t, rec.Malformed())
	assert.Equal(t, "SmuggledGoods", rec.ExternalID)
	assert.Equal(t, "F1", rec.FolderExternalID)
	assert.Equal(t, `<div class="zlink">@JournalEntry[zid=Other]{Other}</div>`, rec.Content)
	assert.Equal(t, `{"default": 2}`, string(rec.Extra["permission"]))
	assert.NotContains(t, rec.Extra, KeyContent)
}

func TestDecode_EmptyExports(t *testing.T) {
	for _, input := range []string{"", "  \n", "null", "{}", "[]", " { } "} {
		t.Run(input, func(t *testing.T) {
			journals, err := DecodeJournals([]byte(input))
			require.NoError(t, err)
			assert.Empty(t, journals)

			folders, err := DecodeFolders([]byte(input))
			require.NoError(t, err)
			assert.Empty(t, folders)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "truncated", input: `[{"name": "a"`},
		{name: "object with keys", input: `{"name": "a"}`},
		{name: "scalar", input: `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFolders([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}
