package source

import (
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/job-alerts/internal/textnorm"
	"github.com/jonathan/job-alerts/internal/types"
)

// CandidateDetailURL is the public page of an offer, used when the offer carries no origin URL.
const CandidateDetailURL = "https://candidat.francetravail.fr/offres/recherche/detail/"

// Offer mirrors the fields of an "Offres d'emploi v2" record that job-alerts keeps.
type Offer struct {
	ID                 string       `json:"id"`
	Intitule           string       `json:"intitule"`
	Description        string       `json:"description"`
	DateCreation       string       `json:"dateCreation"`
	DateActualisation  string       `json:"dateActualisation,omitempty"`
	LieuTravail        LieuTravail  `json:"lieuTravail"`
	Entreprise         Entreprise   `json:"entreprise"`
	TypeContrat        string       `json:"typeContrat"`
	TypeContratLibelle string       `json:"typeContratLibelle,omitempty"`
	Alternance         bool         `json:"alternance,omitempty"`
	Salaire            Salaire      `json:"salaire"`
	Contact            Contact      `json:"contact"`
	OrigineOffre       OrigineOffre `json:"origineOffre"`
}

type LieuTravail struct {
	Libelle    string  `json:"libelle"`
	CodePostal string  `json:"codePostal,omitempty"`
	Commune    string  `json:"commune,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
}

type Entreprise struct {
	Nom string `json:"nom"`
}

type Salaire struct {
	Libelle     string `json:"libelle,omitempty"`
	Commentaire string `json:"commentaire,omitempty"`
}

type Contact struct {
	URLPostulation string `json:"urlPostulation,omitempty"`
}

type OrigineOffre struct {
	Origine    string `json:"origine,omitempty"`
	URLOrigine string `json:"urlOrigine,omitempty"`
}

// "68 - MULHOUSE", "2A - AJACCIO", "974 - ST DENIS"
var libelleDepartment = regexp.MustCompile(`^\s*(\d{2,3}|2[AB])\s*-`)

// Normalize converts a raw offer into a Posting. It does not score or validate.
func Normalize(o Offer) types.Posting {
	id := strings.TrimSpace(o.ID)

	p := types.Posting{
		ExternalID:   id,
		Title:        textnorm.CleanWhitespace(o.Intitule),
		Company:      strings.TrimSpace(o.Entreprise.Nom),
		Location:     strings.TrimSpace(o.LieuTravail.Libelle),
		LocationCode: DepartmentCode(o.LieuTravail),
		PublishedAt:  parseDate(o.DateCreation),
		Description:  textnorm.StripHTML(o.Description),
		ContractType: contractType(o),
		Salary:       salaryText(o.Salaire),
		ApplyURL:     types.CleanURL(o.Contact.URLPostulation),
		URL:          types.CleanURL(o.OrigineOffre.URLOrigine),
	}
	if l := o.LieuTravail; l.Latitude != 0 || l.Longitude != 0 {
		lat, lon := l.Latitude, l.Longitude
		p.Latitude, p.Longitude = &lat, &lon
	}
	if p.URL == "" && id != "" {
		p.URL = CandidateDetailURL + id
	}
	return p
}

// DepartmentCode returns the département of a work place, from the label prefix
// or else the postal code (three digits overseas, 2A/2B in Corsica).
func DepartmentCode(l LieuTravail) string {
	if m := libelleDepartment.FindStringSubmatch(l.Libelle); m != nil {
		return m[1]
	}
	cp := strings.TrimSpace(l.CodePostal)
	if len(cp) < 2 {
		return ""
	}
	if strings.HasPrefix(cp, "97") && len(cp) >= 3 {
		return cp[:3]
	}
	if strings.HasPrefix(cp, "20") && len(cp) >= 3 {
		// Corsica: 200xx and 201xx are Corse-du-Sud, 202xx to 206xx Haute-Corse.
		if cp[2] <= '1' {
			return "2A"
		}
		return "2B"
	}
	return cp[:2]
}

func contractType(o Offer) string {
	if o.Alternance && !strings.EqualFold(o.TypeContrat, "alternance") {
		return strings.TrimSpace(o.TypeContrat + " alternance")
	}
	return strings.TrimSpace(o.TypeContrat)
}

func salaryText(s Salaire) string {
	switch {
	case s.Libelle != "" && s.Commentaire != "":
		return s.Libelle + " (" + s.Commentaire + ")"
	case s.Libelle != "":
		return s.Libelle
	}
	return s.Commentaire
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
