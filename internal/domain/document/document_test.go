package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
	"version": "v1.2.0",
	"mappings": [{"id": "m1", "source": ["Amount"], "target": "Value", "kind": "exact"}],
	"virtualFields": [],
	"transformations": {},
	"sortConfiguration": {"sourceSortKey": "Ts", "targetSortKey": "Ts", "matchStrategy": "exact"}
}`

func TestParseJSONValidDocument(t *testing.T) {
	doc, err := ParseJSON([]byte(validJSON))
	require.NoError(t, err)
	assert.Len(t, doc.ColumnMappings(), 1)
	assert.Equal(t, "exact", string(doc.ReconConfig().MatchStrategy))
}

func TestParseYAMLValidDocument(t *testing.T) {
	yamlDoc := `
version: v1.0.0
mappings:
  - id: m1
    source: [Amount]
    target: Value
    kind: exact
sortConfiguration:
  sourceSortKey: Ts
  targetSortKey: Ts
  matchStrategy: exact
`
	doc, err := ParseYAML([]byte(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, "Ts", doc.SortConfiguration.SourceSortKey)
}

func TestParseJSONRejectsInvalidVersion(t *testing.T) {
	_, err := ParseJSON([]byte(`{"version": "not-semver", "mappings": [{"id":"m1","source":["A"],"target":"B","kind":"exact"}], "sortConfiguration": {"sourceSortKey": "A"}}`))
	assert.Error(t, err)
}

func TestParseJSONRejectsEmptyMappings(t *testing.T) {
	_, err := ParseJSON([]byte(`{"version": "v1.0.0", "mappings": [], "sortConfiguration": {"sourceSortKey": "A"}}`))
	assert.Error(t, err)
}

func TestParseJSONRejectsMissingSortKeys(t *testing.T) {
	_, err := ParseJSON([]byte(`{"version": "v1.0.0", "mappings": [{"id":"m1","source":["A"],"target":"B","kind":"exact"}], "sortConfiguration": {}}`))
	assert.Error(t, err)
}

func TestParseJSONRejectsVersionBelowMinimum(t *testing.T) {
	_, err := ParseJSON([]byte(`{"version": "v0.9.0", "mappings": [{"id":"m1","source":["A"],"target":"B","kind":"exact"}], "sortConfiguration": {"sourceSortKey": "A"}}`))
	assert.Error(t, err)
}

func TestParseJSONRejectsMalformedVirtualField(t *testing.T) {
	_, err := ParseJSON([]byte(`{
		"version": "v1.0.0",
		"mappings": [{"id":"m1","source":["A"],"target":"B","kind":"exact"}],
		"virtualFields": [{"name": "net", "side": "source", "dataType": "number",
			"fields": [{"name": "Gross"}, {"name": "Fee"}], "operations": []}],
		"sortConfiguration": {"sourceSortKey": "A"}
	}`))
	assert.Error(t, err)
}

func TestBuildVirtualFieldsConvertsSpecs(t *testing.T) {
	doc := &Document{
		VirtualFields: []VirtualFieldSpec{
			{Name: "net", Side: "source", DataType: "number",
				Fields:     []FieldRefSpec{{Name: "Gross"}, {Name: "Fee"}},
				Operations: []string{"subtract"}},
		},
	}
	vfs := doc.BuildVirtualFields()
	require.Len(t, vfs, 1)
	assert.NoError(t, vfs[0].Validate())
}
