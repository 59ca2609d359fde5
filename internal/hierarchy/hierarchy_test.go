// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hierarchy

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	schemaFixture    = "testdata/onenote.xsd"
	hierarchyFixture = "testdata/hierarchy.xml"
	oneNS            = `xmlns:one="http://schemas.microsoft.com/office/onenote/2013/onenote"`
)

func loadFixtures(t *testing.T) (*Schema, []byte) {
	t.Helper()
	schema, err := LoadSchema(schemaFixture)
	require.NoError(t, err)
	data, err := os.ReadFile(hierarchyFixture)
	require.NoError(t, err)
	return schema, data
}

func TestValidate_ValidHierarchy(t *testing.T) {
	schema, data := loadFixtures(t)

	doc, err := Validate(data, schema)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Notebooks", doc.Root.Name.Local)
}

func TestValidateWithSchemaFile(t *testing.T) {
	_, data := loadFixtures(t)

	doc, err := ValidateWithSchemaFile(data, schemaFixture)
	require.NoError(t, err)
	assert.NotNil(t, doc)

	_, err = ValidateWithSchemaFile(data, filepath.Join(t.TempDir(), "missing.xsd"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading schema")
}

func TestValidate_Rejects(t *testing.T) {
	schema, _ := loadFixtures(t)

	tests := []struct {
		name    string
		doc     string
		wantErr error
		wantMsg string
	}{
		{
			name:    "not well-formed",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="x" ID="1"></one:Notebooks>`,
			wantErr: ErrMalformed,
		},
		{
			name:    "empty input",
			doc:     ``,
			wantErr: ErrMalformed,
		},
		{
			name:    "two root elements",
			doc:     `<one:Notebooks ` + oneNS + `/><one:Notebooks ` + oneNS + `/>`,
			wantErr: ErrMalformed,
		},
		{
			name:    "wrong namespace (older schema)",
			doc:     `<one:Notebooks xmlns:one="http://schemas.microsoft.com/office/onenote/2010/onenote"/>`,
			wantErr: ErrSchemaViolation,
			wantMsg: "namespace",
		},
		{
			name:    "undeclared root",
			doc:     `<one:Pages ` + oneNS + `/>`,
			wantErr: ErrSchemaViolation,
			wantMsg: "root element is not declared",
		},
		{
			name:    "missing required attribute",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="Work"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: `missing required attribute "ID"`,
		},
		{
			name:    "unknown attribute",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="Work" ID="1" shiny="yes"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: `attribute "shiny" is not allowed`,
		},
		{
			name:    "enumeration out of range",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="Work" ID="1" isRecycleBin="maybe"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: `attribute "isRecycleBin" value "maybe": not in [true false]`,
		},
		{
			name:    "boolean lexical form",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="Work" ID="1" isCurrentlyViewed="yes"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: `value "yes": not a valid xsd:boolean`,
		},
		{
			name:    "dateTime lexical form",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="Work" ID="1" lastModifiedTime="yesterday"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: `value "yesterday": not a valid xsd:dateTime`,
		},
		{
			name:    "dateTime out of calendar",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="Work" ID="1" lastModifiedTime="2024-02-30T10:00:00.000Z"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: "not a valid xsd:dateTime",
		},
		{
			name:    "pattern facet",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="Work" ID="1" color="red"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: `value "red": does not match pattern`,
		},
		{
			name:    "sequence order",
			doc:     `<one:Notebooks ` + oneNS + `><one:UnfiledNotes ID="u"/><one:Notebook name="Work" ID="1"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: `/Notebooks/Notebook (line 1): unexpected element "Notebook"`,
		},
		{
			name:    "maxOccurs exceeded",
			doc:     `<one:Notebooks ` + oneNS + `><one:UnfiledNotes ID="u"/><one:UnfiledNotes ID="v"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: `unexpected element "UnfiledNotes", expected no further elements`,
		},
		{
			name:    "text in element-only content",
			doc:     `<one:Notebooks ` + oneNS + `>stray</one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: "text content is not allowed",
		},
		{
			name:    "unexpected child element",
			doc:     `<one:Notebooks ` + oneNS + `><one:Page name="p" ID="1"/></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: "/Notebooks/Page (line 1): element is not allowed here",
		},
		{
			name:    "nested violation reports the path",
			doc:     `<one:Notebooks ` + oneNS + `><one:Notebook name="Work" ID="1"><one:Section name="s"/></one:Notebook></one:Notebooks>`,
			wantErr: ErrSchemaViolation,
			wantMsg: "/Notebooks/Notebook/Section",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Validate([]byte(tt.doc), schema)
			assert.Nil(t, doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseSchema_Rejects(t *testing.T) {
	_, err := ParseSchema([]byte(`<notaschema/>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an xsd:schema")

	_, err = ParseSchema([]byte(`<xsd:schema xmlns:xsd="http://www.w3.org/2001/XMLSchema"/>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no global elements")
}

func TestNotebooks_DocumentOrder(t *testing.T) {
	schema, data := loadFixtures(t)
	doc, err := Validate(data, schema)
	require.NoError(t, err)

	notebooks := doc.Notebooks()
	require.Len(t, notebooks, 2)

	assert.Equal(t, "{A1}{1}{B0}", notebooks[0].ID)
	assert.Equal(t, "Work", notebooks[0].Name)
	assert.Equal(t, "Work", notebooks[0].Nickname)
	assert.Equal(t, `C:\Users\me\Documents\OneNote Notebooks\Work`, notebooks[0].Location)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC), notebooks[0].LastModified)

	assert.Equal(t, "{B2}{1}{B0}", notebooks[1].ID)
	assert.Equal(t, "Recipes: Family/Friends", notebooks[1].Name)
	assert.Empty(t, notebooks[1].ExportPath)
}

func TestParse_ByteOrderMark(t *testing.T) {
	schema, data := loadFixtures(t)

	doc, err := Validate(append([]byte("\xEF\xBB\xBF"), data...), schema)
	require.NoError(t, err)
	assert.Len(t, doc.Notebooks(), 2)
}

func TestNotebooks_SingleNotebookRoot(t *testing.T) {
	doc, err := Parse([]byte(`<one:Notebook ` + oneNS + ` name="Solo" ID="{S}"/>`))
	require.NoError(t, err)

	notebooks := doc.Notebooks()
	require.Len(t, notebooks, 1)
	assert.Equal(t, "Solo", notebooks[0].Name)
}

func TestWriteFile_PrettyPrintsWithDeclaration(t *testing.T) {
	_, data := loadFixtures(t)
	doc, err := Parse(data)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "hierarchy.xml")
	require.NoError(t, doc.WriteFile(path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(out)

	assert.True(t, strings.HasPrefix(text, "<?xml version='1.0' encoding='UTF-8'?>\n"))
	assert.Contains(t, text, "<one:Notebooks "+oneNS+">\n")
	assert.Contains(t, text, "\n  <one:Notebook name=\"Work\"")
	assert.Contains(t, text, "\n    <one:Section name=\"Desserts\"")
	assert.Contains(t, text, "</one:Notebooks>\n")

	// The written copy parses back to the same notebooks.
	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, doc.Notebooks(), again.Notebooks())
}

func TestWriteTo_EscapesAttributes(t *testing.T) {
	doc, err := Parse([]byte(`<root a="x &amp; &quot;y&quot; &lt;z&gt;"><leaf>1 &lt; 2</leaf></root>`))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = doc.WriteTo(&buf)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `a="x &amp; &#34;y&#34; &lt;z&gt;"`)
	assert.Contains(t, buf.String(), `<leaf>1 &lt; 2</leaf>`)
}
