package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slipscan/internal"
	"slipscan/internal/util"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "slips.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpsertSlipKeepsFirstVendor(t *testing.T) {
	db := openDB(t)

	first := internal.Slip{
		SlipNo: "10001",
		Vendor: util.StringPtr("株式会社サンプルフード"),
		Items: []internal.Item{
			{LineNo: 3, Raw: "トマト 10 kg", Name: "トマト", Qty: internal.QuantityUnit{Quantity: util.FloatPtr(10), Raw: "10", Unit: "kg"}},
		},
	}
	require.NoError(t, db.UpsertSlip(nil, first))

	second := internal.Slip{
		SlipNo: "10001",
		Vendor: util.StringPtr("別の会社"),
		Items: []internal.Item{
			{LineNo: 3, Raw: "トマト 10 kg", Name: "トマト", Qty: internal.QuantityUnit{Quantity: util.FloatPtr(10), Raw: "10", Unit: "kg"}},
			{LineNo: 7, Raw: "バター 1/2", Name: "バター", Qty: internal.QuantityUnit{Raw: "1/2"}, Price: util.FloatPtr(450)},
		},
	}
	require.NoError(t, db.UpsertSlip(nil, second))

	got, err := db.GetSlip("10001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "株式会社サンプルフード", *got.Vendor)
	assert.Equal(t, second.Items, got.Items)
}

func TestUpsertSlipFillsMissingVendor(t *testing.T) {
	db := openDB(t)

	require.NoError(t, db.UpsertSlip(nil, internal.Slip{SlipNo: "20001"}))
	require.NoError(t, db.UpsertSlip(nil, internal.Slip{SlipNo: "20001", Vendor: util.StringPtr("A商店")}))

	got, err := db.GetSlip("20001")
	require.NoError(t, err)
	assert.Equal(t, "A商店", *got.Vendor)
	assert.Empty(t, got.Items)

	missing, err := db.GetSlip("99999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentsAndExportRows(t *testing.T) {
	db := openDB(t)

	doc, err := db.UpsertDocument("gmail", "<m1@example.com>", "納品書", "v@example.com", "2026-10-05T00:00:00Z", "h1", "/tmp/h1.eml", StatusFetched)
	require.NoError(t, err)
	require.NoError(t, db.UpdateDocumentStatus(doc.ID, StatusProcessed))

	again, err := db.UpsertDocument("gmail", "<m1@example.com>", "納品書 (再送)", "v@example.com", "2026-10-05T00:00:00Z", "h1", "/tmp/h1.eml", StatusFetched)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)
	assert.Equal(t, StatusProcessed, again.Status, "refetch keeps status")
	assert.Equal(t, "納品書 (再送)", again.Subject)

	slip := internal.Slip{
		SlipNo: "10001",
		Vendor: util.StringPtr("株式会社サンプルフード"),
		Items: []internal.Item{
			{LineNo: 3, Raw: "牛乳 2 l", Name: "牛乳", Qty: internal.QuantityUnit{Quantity: util.FloatPtr(2000), Raw: "2", Unit: "ml"}, Price: util.FloatPtr(398)},
		},
	}
	require.NoError(t, db.UpsertSlip(&doc.ID, slip))

	rows, err := db.GetSlipExportRows(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []internal.SlipExportRow{{
		SlipNo: "10001", Vendor: "株式会社サンプルフード", LineNo: 3, RawLine: "牛乳 2 l",
		ItemName: "牛乳", Quantity: "2000", Unit: "ml", Price: "398",
	}}, rows)

	processed, err := db.ListDocumentsByStatus(StatusProcessed, "", 10)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	processed, err = db.ListDocumentsByStatus(StatusProcessed, "gmail", 10)
	require.NoError(t, err)
	require.Len(t, processed, 1)

	processed, err = db.ListDocumentsByStatus(StatusProcessed, "imap", 10)
	require.NoError(t, err)
	assert.Empty(t, processed)

	bare, err := db.UpsertDocument("gmail", "<m2@example.com>", "納品書", "v@example.com", "2026-10-06T00:00:00Z", "h2", "/tmp/h2.eml", StatusProcessed)
	require.NoError(t, err)
	require.NoError(t, db.UpsertSlip(&bare.ID, internal.Slip{SlipNo: "20001", Items: []internal.Item{}}))
	rows, err = db.GetSlipExportRows(bare.ID)
	require.NoError(t, err)
	assert.Equal(t, []internal.SlipExportRow{{SlipNo: "20001"}}, rows, "slip without items still exported")

	_, err = db.MustDocumentByProviderMessageID("gmail", "<missing@example.com>")
	assert.Error(t, err)
}

func TestIngredients(t *testing.T) {
	db := openDB(t)

	require.NoError(t, db.UpsertIngredients([]internal.Ingredient{
		{ID: 2, Recipe: "スープ", Name: "水", Quantity: "2", Unit: "l"},
		{ID: 1, Recipe: "カレー", Name: "豚肉", Quantity: "200g"},
	}))
	require.NoError(t, db.UpdateIngredientQuantity(2, "2000", "ml"))

	list, err := db.ListIngredients()
	require.NoError(t, err)
	assert.Equal(t, []internal.Ingredient{
		{ID: 1, Recipe: "カレー", Name: "豚肉", Quantity: "200g"},
		{ID: 2, Recipe: "スープ", Name: "水", Quantity: "2000", Unit: "ml"},
	}, list)
}

func TestRunsAndMetadata(t *testing.T) {
	db := openDB(t)

	require.NoError(t, db.InsertRun("trace-1", "parse", nil, true, map[string]float64{"totalMs": 3}, map[string]int{"slips": 1}))
	n, err := db.CountRuns("parse")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	value, err := db.GetMetadata("last_fetch")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, db.SetMetadata("last_fetch", "2026-10-05"))
	require.NoError(t, db.SetMetadata("last_fetch", "2026-10-06"))
	value, err = db.GetMetadata("last_fetch")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-06", *value)
}
