package pipeline

import "strings"

type DetectResult struct {
	IsSlip bool
	Score  float64
	Reason string
}

var detectKeywords = []string{"納品書", "納品", "伝票", "取引先", "仕入", "発注", "数量", "delivery", "slip"}

// DetectDeliverySlip scores a fetched message on subject, body and
// attachment names. Messages below the threshold are skipped, not parsed.
func DetectDeliverySlip(subject, text string, lines []string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}

	slipHits := 0
	for _, line := range lines {
		if reSlipInline.MatchString(line) || reSlipLabelOnly.MatchString(line) {
			slipHits++
		}
	}
	if slipHits >= 1 {
		score += 0.5
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls") || strings.HasSuffix(ln, ".pdf") {
			score += 0.25
			break
		}
	}

	if score > 1 {
		score = 1
	}

	isSlip := score >= 0.45
	reason := "rules_negative"
	if isSlip {
		reason = "rules_positive"
	}

	return DetectResult{IsSlip: isSlip, Score: score, Reason: reason}
}
