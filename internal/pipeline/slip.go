package pipeline

import (
	"regexp"
	"strings"

	"slipscan/internal"
	"slipscan/internal/util"
)

const slipLabel = `(?:伝票\s*(?:番号|No\.?|NO\.?|no\.?|Ｎｏ[．.]?|ＮＯ[．.]?|#)|(?i:slip\s*no\.?))`

var (
	reSlipInline     = regexp.MustCompile(slipLabel + `\s*[:：#]?\s*([0-9]{3,})`)
	reSlipLabelOnly  = regexp.MustCompile(`^` + slipLabel + `\s*[:：]?$`)
	reSlipNumberLine = regexp.MustCompile(`^[0-9]{3,}$`)

	// Group 1 is the optional "name" suffix, group 2 the remainder after the colon.
	reVendorLabel    = regexp.MustCompile(`^(?:取引先|仕入先|発注先|納品元|仕入業者|(?i:vendor|supplier))(名称?|(?i:\s*name))?\s*[:：]?\s*(.*)$`)
	reVendorMetadata = regexp.MustCompile(`(?i)コード|住所|所在地|電話|\b(?:tel|fax|code|address|phone)\b`)
	reVendorCode     = regexp.MustCompile(`^[0-9]+\s+`)
)

// SlipSet holds slips keyed by slip number in first-seen order.
type SlipSet struct {
	order []string
	slips map[string]*internal.Slip
}

func newSlipSet() *SlipSet {
	return &SlipSet{slips: map[string]*internal.Slip{}}
}

func (s *SlipSet) Len() int {
	return len(s.order)
}

func (s *SlipSet) Get(slipNo string) (*internal.Slip, bool) {
	slip, ok := s.slips[slipNo]
	return slip, ok
}

// scanState is the whole parser context for one scan. Nothing outlives it.
type scanState struct {
	set           *SlipSet
	current       *internal.Slip
	pendingVendor *string
}

// lineMatcher returns how many lines it consumed and whether it handled the line.
type lineMatcher struct {
	name  string
	apply func(st *scanState, line, next string, hasNext bool) (int, bool)
}

// Evaluated in order; the first matcher that handles a line wins. Lines no
// matcher handles become item lines of the current slip.
var lineMatchers = []lineMatcher{
	{name: "slip_inline", apply: matchSlipInline},
	{name: "slip_label", apply: matchSlipLabel},
	{name: "vendor", apply: matchVendor},
}

// ScanSlips walks normalized lines once, with one line of lookahead, and
// groups item lines under slip numbers. A slip number seen again (next page)
// reopens the existing slip.
func ScanSlips(lines []string) (*SlipSet, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}

	st := &scanState{set: newSlipSet()}
	for i := 0; i < len(lines); {
		line := lines[i]
		next, hasNext := "", false
		if i+1 < len(lines) {
			next, hasNext = lines[i+1], true
		}

		advance := 0
		for _, m := range lineMatchers {
			if n, ok := m.apply(st, line, next, hasNext); ok {
				advance = n
				break
			}
		}
		if advance == 0 {
			st.accumulate(i+1, line)
			advance = 1
		}
		i += advance
	}
	return st.set, nil
}

func matchSlipInline(st *scanState, line, _ string, _ bool) (int, bool) {
	m := reSlipInline.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	st.openSlip(m[1])
	return 1, true
}

func matchSlipLabel(st *scanState, line, next string, hasNext bool) (int, bool) {
	if !hasNext || !reSlipLabelOnly.MatchString(line) || !reSlipNumberLine.MatchString(next) {
		return 0, false
	}
	st.openSlip(next)
	return 2, true
}

func matchVendor(st *scanState, line, next string, hasNext bool) (int, bool) {
	m := reVendorLabel.FindStringSubmatch(line)
	if m == nil || reVendorMetadata.MatchString(vendorLabelPart(line)) {
		return 0, false
	}

	name := vendorName(m[2])
	// Label alone: the name sits on the next line. Peek only, the next line
	// is still scanned on its own.
	if name == "" && hasNext && looksLikeVendorName(next) {
		name = next
	}
	if name != "" {
		st.commitVendor(name)
	}
	return 1, true
}

// vendorLabelPart is the text before the first colon, so words inside the
// vendor name itself never mark the line as metadata.
func vendorLabelPart(line string) string {
	if i := strings.IndexAny(line, ":："); i >= 0 {
		return line[:i]
	}
	return line
}

func vendorName(remainder string) string {
	name := strings.TrimSpace(remainder)
	if loc := reVendorCode.FindStringIndex(name); loc != nil {
		name = strings.TrimSpace(name[loc[1]:])
	}
	if util.IsBareNumber(name) {
		return ""
	}
	return name
}

func looksLikeVendorName(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || util.IsBareNumber(line) || reVendorMetadata.MatchString(line) {
		return false
	}
	return !reSlipInline.MatchString(line) && !reSlipLabelOnly.MatchString(line) && !reVendorLabel.MatchString(line)
}

func (st *scanState) openSlip(slipNo string) {
	if existing, ok := st.set.slips[slipNo]; ok {
		st.current = existing
		return
	}
	slip := &internal.Slip{SlipNo: slipNo, Vendor: st.pendingVendor, Items: []internal.Item{}}
	st.pendingVendor = nil
	st.set.slips[slipNo] = slip
	st.set.order = append(st.set.order, slipNo)
	st.current = slip
}

// commitVendor applies first-writer-wins both to the open slip and to the
// pending vendor held for the next slip.
func (st *scanState) commitVendor(name string) {
	if st.current != nil {
		if st.current.Vendor == nil {
			st.current.Vendor = util.StringPtr(name)
		}
		return
	}
	if st.pendingVendor == nil {
		st.pendingVendor = util.StringPtr(name)
	}
}

func (st *scanState) accumulate(lineNo int, line string) {
	if st.current == nil {
		return
	}
	st.current.Items = append(st.current.Items, internal.Item{LineNo: lineNo, Raw: line, Name: line})
}
