// Package catalog holds the static categorized checkup package catalog offered
// when a requester has no prescription. The data mirrors the panels offered by
// the lab; it is compiled in and never fetched.
package catalog

import (
	"fmt"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// CategoryKey identifies one catalog category.
type CategoryKey string

const (
	CategoryGeneral     CategoryKey = "general"
	CategorySpecialized CategoryKey = "specialized"
	CategoryWomen       CategoryKey = "women"
	CategoryCancer      CategoryKey = "cancer"
)

// Package describes one selectable checkup panel.
type Package struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular,omitempty"`
}

// Category groups packages under a titled tab.
type Category struct {
	Title    string    `json:"title"`
	Packages []Package `json:"packages"`
}

var categories = map[CategoryKey]Category{
	CategoryGeneral: {
		Title: "General checkups",
		Packages: []Package{
			{
				Title:       "General checkup - before puberty",
				Subtitle:    "(girls and boys)",
				Description: "Baseline health screening for children and adolescents",
				Features: []string{
					"CBC, ESR, CRP",
					"FBS, Urea, Cr, U.A",
					"Ca, P, AST, ALT, ALP, Bili (T&D)",
					"T3, T4, TSH, Anti TPO",
					"Vit D, TIBC, Ferritin, Folic Acid, Vit B12",
					"Serum Albumin & Protein, Cortisol (8-10 AM)",
					"HBs Ag & Ab, U/A & U/C, S/E x3",
				},
			},
			{
				Title:       "General checkup - after puberty",
				Subtitle:    "(women and men)",
				Description: "Complete checkup for adults",
				Features: []string{
					"CBC, ESR, CRP, RF",
					"FBS, Urea, Cr, U.A",
					"Ch, TG, HDL, LDL, Na, K, Ca, P",
					"AST, ALT, ALP, Bili (T&D), Hb A1C",
					"T3, T4, TSH, Anti TPO, Vit D",
					"Fe, TIBC, Ferritin, Serum Albumin & Protein",
					"Cortisol, HBs Ag & Ab, HCV Ab, HIV Ab",
				},
				Popular: true,
			},
		},
	},
	CategorySpecialized: {
		Title: "Specialized checkups",
		Packages: []Package{
			{
				Title:       "Growth disorder panel",
				Subtitle:    "(before puberty)",
				Description: "For children growing below the expected range",
				Features: []string{
					"GH base",
					"GH after stimulation (exercise or clonidine)",
					"IGF-1",
				},
			},
			{
				Title:       "Diabetes panel",
				Subtitle:    "(after puberty)",
				Description: "For people suspected of or living with diabetes",
				Features: []string{
					"2h.p.p, Hb A1C",
					"C-peptide, Anti GAD",
					"Insulin Ab, Serum fasting",
					"Islet Ab, Urine microalbumin",
				},
			},
			{
				Title:       "Anemia panel",
				Subtitle:    "(after puberty)",
				Description: "Iron deficiency, B12 and folate anemia workup",
				Features: []string{
					"Retic count",
					"Fe, TIBC, Ferritin",
					"Folic acid, Vit B12",
				},
			},
		},
	},
	CategoryWomen: {
		Title: "Women's checkups",
		Packages: []Package{
			{
				Title:       "Amenorrhea panel",
				Subtitle:    "(menstrual disorder)",
				Description: "Workup for absent or irregular menstruation",
				Features:    []string{"LH, FSH, PRL", "Testosterone, Estradiol", "DHEA-S, 17OH Progesterone", "Progesterone, Karyotype"},
			},
			{
				Title:       "Polycystic ovary panel (PCOS)",
				Description: "PCOS diagnosis and androgen workup",
				Features:    []string{"LH, FSH, PRL", "Testosterone, F.Testosterone, AMH", "17OH Progesterone, Estradiol", "DHEA-S, Androstenedione"},
				Popular:     true,
			},
			{
				Title:       "Hyperandrogenism panel",
				Subtitle:    "(hirsutism)",
				Description: "For women with excess hair growth or severe acne",
				Features:    []string{"Androstenedione, DHEA-S", "17OH Progesterone, AMH", "Testosterone, F.Testosterone, DHT"},
			},
		},
	},
	CategoryCancer: {
		Title: "Cancer screening",
		Packages: []Package{
			{
				Title:       "Breast cancer panel",
				Subtitle:    "(women)",
				Description: "Screening for women at risk",
				Features:    []string{"CEA", "CA 125", "CA 15.3", "HER2"},
			},
			{
				Title:       "Ovarian cancer panel",
				Subtitle:    "(women)",
				Description: "Specialized ovarian cancer screening",
				Features:    []string{"CEA, CA 125", "HE4", "Roma Factor", "B.HCG"},
			},
			{
				Title:       "Prostate cancer panel",
				Subtitle:    "(men)",
				Description: "Prostate cancer screening",
				Features:    []string{"PSA", "F.PSA", "F.PSA / PSA ratio"},
			},
			{
				Title:       "Colorectal cancer panel",
				Subtitle:    "(women and men)",
				Description: "Colorectal cancer screening",
				Features:    []string{"CEA", "CA 19.9", "OB (Stool)"},
			},
		},
	},
}

// categoryOrder fixes the presentation order of catalog tabs.
var categoryOrder = []CategoryKey{CategoryGeneral, CategorySpecialized, CategoryWomen, CategoryCancer}

// Categories returns the catalog category keys in presentation order.
func Categories() []CategoryKey {
	out := make([]CategoryKey, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Get returns the category for the given key.
func Get(key CategoryKey) (Category, error) {
	cat, ok := categories[key]
	if !ok {
		return Category{}, fmt.Errorf("unknown catalog category %q", key)
	}
	return cat, nil
}

// Lookup returns the package at index within the given category.
func Lookup(key CategoryKey, index int) (Package, error) {
	cat, err := Get(key)
	if err != nil {
		return Package{}, err
	}
	if index < 0 || index >= len(cat.Packages) {
		return Package{}, fmt.Errorf("package index %d out of range for category %q", index, key)
	}
	return cat.Packages[index], nil
}

// Ref builds a models.PackageRef for the package at index within category,
// validating that the package exists.
func Ref(key CategoryKey, index int) (*models.PackageRef, error) {
	pkg, err := Lookup(key, index)
	if err != nil {
		return nil, err
	}
	return &models.PackageRef{Category: string(key), Index: index, Title: pkg.Title}, nil
}
