package csv

import (
	"strings"

	"github.com/chbs/lead-outreach/internal/core"
	"go.uber.org/zap"
)

// headerSynonyms maps a canonicalized header cell (lowercased, quotes and
// internal whitespace removed) onto the field it populates. Headers that
// resolve to nothing are ignored downstream.
var headerSynonyms = map[string]string{
	"firstname":       "firstName",
	"first":           "firstName",
	"fname":           "firstName",
	"lastname":        "lastName",
	"last":            "lastName",
	"lname":           "lastName",
	"surname":         "lastName",
	"fullname":        "fullName",
	"name":            "fullName",
	"contact":         "fullName",
	"email":           "email",
	"e-mail":          "email",
	"emailaddress":    "email",
	"mail":            "email",
	"phone":           "phone",
	"phonenumber":     "phone",
	"cell":            "phone",
	"mobile":          "phone",
	"telephone":       "phone",
	"tel":             "phone",
	"address":         "address",
	"propertyaddress": "address",
	"streetaddress":   "address",
	"property":        "address",
	"leadtype":        "leadType",
	"type":            "leadType",
	"category":        "leadType",
	"notes":           "notes",
	"note":            "notes",
	"comments":        "notes",
}

// leadTypeSynonyms maps a case-folded lead-type cell onto the closed
// enumeration. Unmapped values fall back to unset rather than erroring.
var leadTypeSynonyms = map[string]core.LeadType{
	"divorce":        core.LeadDivorce,
	"probate":        core.LeadProbate,
	"foreclosure":    core.LeadForeclosure,
	"preforeclosure": core.LeadForeclosure,
	"taxlien":        core.LeadTaxLien,
	"tax lien":       core.LeadTaxLien,
	"tax-lien":       core.LeadTaxLien,
	"lien":           core.LeadTaxLien,
	"outofstate":     core.LeadOutOfState,
	"out of state":   core.LeadOutOfState,
	"absentee":       core.LeadOutOfState,
}

// Normalizer turns raw delimited text into canonical contact records
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize parses the raw text and returns the contacts that survived
// normalization. Rows without an email or phone are dropped silently.
func (n *Normalizer) Normalize(rawText string) []core.Contact {
	records, _ := n.NormalizeReport(rawText)
	return records
}

// NormalizeReport parses the raw text and additionally reports how many data
// rows were rejected, for import previews. The function is pure: the same
// input always yields the same output.
func (n *Normalizer) NormalizeReport(rawText string) ([]core.Contact, int) {
	lines := splitLines(rawText)
	if len(lines) == 0 {
		return nil, 0
	}

	headers := make([]string, 0)
	for _, cell := range splitFields(lines[0]) {
		headers = append(headers, canonicalHeader(cell))
	}

	var records []core.Contact
	rejected := 0
	for _, line := range lines[1:] {
		contact, ok := n.buildContact(headers, splitFields(line))
		if !ok {
			rejected++
			continue
		}
		records = append(records, contact)
	}

	if n.logger != nil {
		n.logger.Debug("Normalized import",
			zap.Int("accepted", len(records)),
			zap.Int("rejected", rejected))
	}
	return records, rejected
}

// buildContact maps one row's fields through the header assignments. A row
// is rejected unless it ends up with an email or a phone.
func (n *Normalizer) buildContact(headers, fields []string) (core.Contact, bool) {
	contact := core.Contact{Status: core.StatusNew}

	for i, value := range fields {
		if i >= len(headers) {
			break
		}
		value = cleanField(value)
		if value == "" {
			continue
		}
		switch headers[i] {
		case "firstName":
			contact.FirstName = value
		case "lastName":
			contact.LastName = value
		case "fullName":
			contact.FullName = value
		case "email":
			contact.Email = value
		case "phone":
			contact.Phone = value
		case "address":
			contact.Address = value
		case "leadType":
			contact.LeadType = normalizeLeadType(value)
		case "notes":
			contact.Notes = value
		}
	}

	// Derive names in whichever direction is missing
	if contact.FullName != "" && contact.FirstName == "" && contact.LastName == "" {
		first, rest := splitName(contact.FullName)
		contact.FirstName = first
		contact.LastName = rest
	}
	if contact.FullName == "" {
		contact.FullName = strings.TrimSpace(contact.FirstName + " " + contact.LastName)
	}

	if !contact.Reachable() {
		return core.Contact{}, false
	}
	return contact, true
}

// splitLines breaks the raw text into non-empty lines
func splitLines(rawText string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(rawText, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitFields splits a row on commas, except inside a double-quoted span or
// a parenthesized span. Phone numbers like (555) 123-4567 contain no comma
// themselves but must not have their parentheses confused with quoting when
// they occur alongside quoted fields with embedded commas.
func splitFields(line string) []string {
	var fields []string
	var buf strings.Builder
	inQuotes := false
	parenDepth := 0

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			buf.WriteRune(r)
		case r == '(' && !inQuotes:
			parenDepth++
			buf.WriteRune(r)
		case r == ')' && !inQuotes:
			if parenDepth > 0 {
				parenDepth--
			}
			buf.WriteRune(r)
		case r == ',' && !inQuotes && parenDepth == 0:
			fields = append(fields, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	fields = append(fields, buf.String())
	return fields
}

// canonicalHeader lowercases a header cell, strips quotes, and removes
// internal whitespace before the synonym lookup. Unrecognized headers pass
// through unchanged so unknown columns are simply never assigned.
func canonicalHeader(cell string) string {
	key := strings.ToLower(cleanField(cell))
	key = strings.Join(strings.Fields(key), "")
	if canonical, ok := headerSynonyms[key]; ok {
		return canonical
	}
	return key
}

// cleanField trims a field and strips one layer of surrounding quotes
func cleanField(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return strings.TrimSpace(value)
}

// normalizeLeadType folds a textual lead type onto the enumeration,
// tolerating spacing and hyphen variants. Unknown values become unset.
func normalizeLeadType(value string) core.LeadType {
	key := strings.ToLower(strings.TrimSpace(value))
	if lt, ok := leadTypeSynonyms[key]; ok {
		return lt
	}
	key = strings.ReplaceAll(strings.ReplaceAll(key, "-", ""), " ", "")
	if lt, ok := leadTypeSynonyms[key]; ok {
		return lt
	}
	return core.LeadUnset
}

// splitName splits a display name at the first whitespace boundary
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	idx := strings.IndexAny(full, " \t")
	if idx < 0 {
		return full, ""
	}
	return full[:idx], strings.TrimSpace(full[idx+1:])
}
