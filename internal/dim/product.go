package dim

import (
	"sort"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/nullable"
	"github.com/sells-group/commerce-warehouse/internal/textnorm"
)

// DefaultCategory is used for products whose category has no translation.
const DefaultCategory = "other"

// DefaultDensityOutlier is the density in g/cm³ above which a product is
// flagged as a density outlier.
const DefaultDensityOutlier = 10.0

// Translations maps normalized source category names to normalized English names.
type Translations map[string]string

// IndexTranslations builds a Translations lookup. Rows with an empty source
// or English name are ignored.
func IndexTranslations(rows []model.CategoryTranslation) Translations {
	t := make(Translations, len(rows))
	for _, r := range rows {
		src := textnorm.Category(r.Category)
		en := textnorm.Category(r.CategoryEnglish)
		if src == "" || en == "" {
			continue
		}
		t[src] = en
	}
	return t
}

// NormalizeProduct cleans one product and derives its volume, density and
// validity flags. Raw values are never altered beyond coercing zero to null.
func NormalizeProduct(p model.Product, translations Translations, outlierThreshold float64) model.CanonicalProduct {
	out := model.CanonicalProduct{
		ProductID: p.ProductID,
		Category:  DefaultCategory,
		WeightG:   nullable.NonZero(p.WeightG),
		LengthCm:  nullable.NonZero(p.LengthCm),
		HeightCm:  nullable.NonZero(p.HeightCm),
		WidthCm:   nullable.NonZero(p.WidthCm),
	}

	out.CategoryMissingTranslation = true
	if p.Category != nil {
		if en, ok := translations[textnorm.Category(*p.Category)]; ok {
			out.Category = en
			out.CategoryMissingTranslation = false
		}
	}

	length := nullable.Positive(out.LengthCm)
	height := nullable.Positive(out.HeightCm)
	width := nullable.Positive(out.WidthCm)
	if length != nil && height != nil && width != nil {
		out.VolumeCm3 = nullable.Ptr(*length * *height * *width)
	}

	weight := nullable.Positive(out.WeightG)
	if weight != nil {
		out.Density = nullable.Div(weight, out.VolumeCm3)
	}

	out.WeightInvalid = weight == nil
	out.DimInvalid = length == nil || height == nil || width == nil
	out.DensityOutlier = out.Density != nil && *out.Density > outlierThreshold
	return out
}

// NormalizeProducts applies NormalizeProduct to every row and returns the
// result ordered by product_id. A non-positive threshold falls back to
// DefaultDensityOutlier.
func NormalizeProducts(rows []model.Product, translations []model.CategoryTranslation, outlierThreshold float64) []model.CanonicalProduct {
	if outlierThreshold <= 0 {
		outlierThreshold = DefaultDensityOutlier
	}
	idx := IndexTranslations(translations)

	out := make([]model.CanonicalProduct, 0, len(rows))
	for _, p := range rows {
		out = append(out, NormalizeProduct(p, idx, outlierThreshold))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
