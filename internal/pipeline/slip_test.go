package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slipscan/internal"
)

func scan(t *testing.T, lines ...string) []internal.Slip {
	t.Helper()
	set, err := ScanSlips(lines)
	require.NoError(t, err)
	return Materialize(set)
}

func rawLines(slip internal.Slip) []string {
	out := make([]string, 0, len(slip.Items))
	for _, item := range slip.Items {
		out = append(out, item.Raw)
	}
	return out
}

func vendorOf(slip internal.Slip) string {
	if slip.Vendor == nil {
		return "<nil>"
	}
	return *slip.Vendor
}

func TestScanSlipsVendorPlacement(t *testing.T) {
	cases := []struct {
		name       string
		lines      []string
		wantSlipNo string
		wantVendor string
		wantItems  []string
	}{
		{
			name:       "vendor before slip",
			lines:      []string{"取引先名： 株式会社サンプルフード", "伝票No. 10001", "商品A"},
			wantSlipNo: "10001",
			wantVendor: "株式会社サンプルフード",
			wantItems:  []string{"商品A"},
		},
		{
			name:       "vendor inside slip",
			lines:      []string{"伝票No. 10002", "取引先名： 株式会社サンプルフード", "商品B"},
			wantSlipNo: "10002",
			wantVendor: "株式会社サンプルフード",
			wantItems:  []string{"商品B"},
		},
		{
			name:       "short label",
			lines:      []string{"発注先： テストサプライヤー", "伝票No. 10003"},
			wantSlipNo: "10003",
			wantVendor: "テストサプライヤー",
			wantItems:  []string{},
		},
		{
			name:       "leading vendor code stripped",
			lines:      []string{"伝票番号: 10004", "仕入先: 0123 株式会社ミナト青果"},
			wantSlipNo: "10004",
			wantVendor: "株式会社ミナト青果",
			wantItems:  []string{},
		},
		{
			name:       "english labels",
			lines:      []string{"Supplier name: Green Farms", "Slip No. 555", "carrots 3 kg"},
			wantSlipNo: "555",
			wantVendor: "Green Farms",
			wantItems:  []string{"carrots 3 kg"},
		},
		{
			name:       "name containing tel",
			lines:      []string{"伝票No. 10005", "Supplier: Hotel Okura Foods", "item"},
			wantSlipNo: "10005",
			wantVendor: "Hotel Okura Foods",
			wantItems:  []string{"item"},
		},
		{
			name:       "name containing code",
			lines:      []string{"取引先名： Castello Farm", "伝票No. 10006"},
			wantSlipNo: "10006",
			wantVendor: "Castello Farm",
			wantItems:  []string{},
		},
		{
			name:       "long name label",
			lines:      []string{"仕入先名称： 株式会社サンプル", "伝票No. 10007"},
			wantSlipNo: "10007",
			wantVendor: "株式会社サンプル",
			wantItems:  []string{},
		},
		{
			name:       "metadata line after bare label",
			lines:      []string{"伝票No. 10008", "Supplier:", "Fax Hotel Supply", "item"},
			wantSlipNo: "10008",
			wantVendor: "<nil>",
			wantItems:  []string{"Fax Hotel Supply", "item"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slips := scan(t, tc.lines...)
			require.Len(t, slips, 1)
			assert.Equal(t, tc.wantSlipNo, slips[0].SlipNo)
			assert.Equal(t, tc.wantVendor, vendorOf(slips[0]))
			assert.Equal(t, tc.wantItems, rawLines(slips[0]))
		})
	}
}

func TestScanSlipsCrossPageMerge(t *testing.T) {
	slips := scan(t,
		"伝票No. 10001",
		"取引先名： 株式会社サンプルフード",
		"トマト 10 kg",
		"伝票No. 10002",
		"取引先名： 有限会社ベジ",
		"きゅうり 5 本",
		"伝票No. 10001",
		"取引先名： 別の会社",
		"玉ねぎ 3 kg",
	)

	require.Len(t, slips, 2)
	assert.Equal(t, "10001", slips[0].SlipNo)
	assert.Equal(t, "株式会社サンプルフード", vendorOf(slips[0]))
	assert.Equal(t, []string{"トマト 10 kg", "玉ねぎ 3 kg"}, rawLines(slips[0]))
	assert.Equal(t, 3, slips[0].Items[0].LineNo)
	assert.Equal(t, 9, slips[0].Items[1].LineNo)

	assert.Equal(t, "10002", slips[1].SlipNo)
	assert.Equal(t, "有限会社ベジ", vendorOf(slips[1]))
	assert.Equal(t, []string{"きゅうり 5 本"}, rawLines(slips[1]))
}

func TestScanSlipsLabelOnlyForm(t *testing.T) {
	slips := scan(t, "伝票番号", "20001", "商品D", "伝票No.", "20002", "商品E")

	require.Len(t, slips, 2)
	assert.Equal(t, "20001", slips[0].SlipNo)
	assert.Equal(t, []string{"商品D"}, rawLines(slips[0]))
	assert.Equal(t, "20002", slips[1].SlipNo)
	assert.Equal(t, []string{"商品E"}, rawLines(slips[1]))
}

func TestScanSlipsLabelWithoutNumberIsContent(t *testing.T) {
	slips := scan(t, "伝票No. 30001", "伝票番号", "未定")

	require.Len(t, slips, 1)
	assert.Equal(t, []string{"伝票番号", "未定"}, rawLines(slips[0]))
}

func TestScanSlipsFirstVendorWins(t *testing.T) {
	t.Run("open slip", func(t *testing.T) {
		slips := scan(t, "伝票No. 40001", "取引先: A商店", "取引先: B商店", "商品")
		require.Len(t, slips, 1)
		assert.Equal(t, "A商店", vendorOf(slips[0]))
		assert.Equal(t, []string{"商品"}, rawLines(slips[0]))
	})

	t.Run("pending vendor", func(t *testing.T) {
		slips := scan(t, "取引先: A商店", "取引先: B商店", "伝票No. 40002")
		require.Len(t, slips, 1)
		assert.Equal(t, "A商店", vendorOf(slips[0]))
	})

	t.Run("pending vendor used once", func(t *testing.T) {
		slips := scan(t, "取引先: A商店", "伝票No. 40003", "x", "伝票No. 40004", "y")
		require.Len(t, slips, 2)
		assert.Equal(t, "A商店", vendorOf(slips[0]))
		assert.Nil(t, slips[1].Vendor)
	})
}

func TestScanSlipsVendorOnNextLine(t *testing.T) {
	slips := scan(t, "伝票No. 50001", "取引先名:", "株式会社ネクスト", "商品C 2 個")

	require.Len(t, slips, 1)
	assert.Equal(t, "株式会社ネクスト", vendorOf(slips[0]))
	// The peeked line is still scanned on its own.
	assert.Equal(t, []string{"株式会社ネクスト", "商品C 2 個"}, rawLines(slips[0]))
}

func TestScanSlipsVendorNextLineRejected(t *testing.T) {
	cases := []struct {
		name string
		next string
	}{
		{name: "bare number", next: "12345"},
		{name: "metadata", next: "TEL 03-1234-5678"},
		{name: "slip line", next: "伝票No. 60002"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slips := scan(t, "伝票No. 60001", "取引先:", tc.next)
			require.NotEmpty(t, slips)
			assert.Nil(t, slips[0].Vendor)
		})
	}
}

func TestScanSlipsMetadataLinesAreNotVendors(t *testing.T) {
	slips := scan(t, "伝票No. 70001", "取引先コード: 1234", "取引先住所: 東京都中央区", "取引先電話: 03-0000-0000", "Supplier Fax: 03-1111-2222")

	require.Len(t, slips, 1)
	assert.Nil(t, slips[0].Vendor)
	assert.Len(t, slips[0].Items, 4)
}

func TestScanSlipsDiscardsPreSlipNoise(t *testing.T) {
	slips := scan(t, "納品書", "株式会社キッチン 御中", "伝票No. 80001", "牛乳 2 l")

	require.Len(t, slips, 1)
	assert.Equal(t, []string{"牛乳 2 l"}, rawLines(slips[0]))
}

func TestScanSlipsNoSlips(t *testing.T) {
	set, err := ScanSlips([]string{"hello", "取引先: A商店"})
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, Materialize(set))
}

func TestScanSlipsEmptyInput(t *testing.T) {
	_, err := ScanSlips(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestMaterializeCopies(t *testing.T) {
	set, err := ScanSlips([]string{"取引先: A商店", "伝票No. 90001", "item"})
	require.NoError(t, err)

	slips := Materialize(set)
	*slips[0].Vendor = "changed"
	slips[0].Items[0].Raw = "changed"

	stored, ok := set.Get("90001")
	require.True(t, ok)
	assert.Equal(t, "A商店", *stored.Vendor)
	assert.Equal(t, "item", stored.Items[0].Raw)
	assert.Empty(t, Materialize(nil))
}
