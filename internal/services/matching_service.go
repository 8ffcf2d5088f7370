package services

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/justsurfingit/jobtrack/internal/models"
	"gorm.io/gorm"
)

// MatcherService finds the open application a classified email belongs
// to, so the reconciler never creates a duplicate for a (company, role)
// pair that is already tracked.
//
// Matching strategy: normalize both sides (lowercase, strip punctuation
// and legal suffixes like "Inc"), try exact match first, then fall back
// to a Levenshtein similarity ratio against Threshold. Role is only
// compared when both sides have one; company alone is enough otherwise.
type MatcherService struct {
	DB        *gorm.DB
	Threshold float64
}

const defaultMatchThreshold = 0.82

func NewMatcherService(db *gorm.DB, threshold float64) *MatcherService {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultMatchThreshold
	}
	return &MatcherService{DB: db, Threshold: threshold}
}

// FindOpenApplication returns the best non-closed match for the given
// company/role, or nil when nothing matches. An empty company never
// matches anything: we refuse to guess from role alone.
func (m *MatcherService) FindOpenApplication(company, role string) (*models.Application, error) {
	normCompany := normalizeName(company)
	if normCompany == "" {
		return nil, nil
	}
	normRole := normalizeName(role)

	var apps []models.Application
	if err := m.DB.Where("stage <> ?", models.StageClosed).Find(&apps).Error; err != nil {
		return nil, err
	}

	var best *models.Application
	bestScore := 0.0
	for i := range apps {
		app := &apps[i]
		companyScore := similarity(normCompany, normalizeName(app.Company))
		if companyScore < m.Threshold {
			continue
		}
		score := companyScore
		if normRole != "" && normalizeName(app.Role) != "" {
			roleScore := similarity(normRole, normalizeName(app.Role))
			if roleScore < m.Threshold {
				continue
			}
			score = (companyScore + roleScore) / 2
		}
		if score > bestScore {
			best = app
			bestScore = score
		}
	}
	return best, nil
}

var legalSuffixes = []string{"inc", "llc", "ltd", "corp", "corporation", "co", "gmbh", "plc"}

// normalizeName lowercases, strips punctuation and trailing legal
// suffixes, and collapses whitespace. "Acme, Inc." and "acme" normalize
// to the same string.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	for len(words) > 1 {
		last := words[len(words)-1]
		isSuffix := false
		for _, suf := range legalSuffixes {
			if last == suf {
				isSuffix = true
				break
			}
		}
		if !isSuffix {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// similarity is 1 - editDistance/maxLen, in [0,1]. Equal strings score
// 1, fully different strings score 0.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1 - float64(dist)/float64(maxLen)
}
