package core

// columns.go maps free-form sheet headers to canonical product fields.
//
// Tabs are maintained by hand, so headers vary in case, accents, order and
// wording ("Código", "SKU", "Precio Neto", "Precio sin IVA"). Each header is
// folded (lowercase, accents removed, separators collapsed) and tested
// against the field matchers in a fixed order; the first matcher that accepts
// the header claims it. If that field is already claimed by an earlier
// header, the later header is ignored.

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinHeaderColumns is the fewest header cells a partition may have.
const MinHeaderColumns = 5

type columnMatcher struct {
	field   Field
	exact   []string // whole folded header
	tokens  []string // substring of the folded header
	exclude []string // vetoes a token match
}

func (m columnMatcher) matches(header string) bool {
	for _, e := range m.exact {
		if header == e {
			return true
		}
	}
	for _, x := range m.exclude {
		if strings.Contains(header, x) {
			return false
		}
	}
	for _, t := range m.tokens {
		if strings.Contains(header, t) {
			return true
		}
	}
	return false
}

// defaultMatchers is ordered: specific wordings come before generic ones so
// "Precio con IVA" lands on price_with_tax before "precio" claims net_price,
// and "Tipo producto" is a type before "producto" makes it a name.
func defaultMatchers() []columnMatcher {
	return []columnMatcher{
		{field: FieldIdentifier, exact: []string{"id", "cod", "sku"}, tokens: []string{"sku", "codigo", "code"}},
		{field: FieldPriceWithTax, tokens: []string{"iva", "con impuesto", "precio final", "precio total"}, exclude: []string{"sin", "neto", "stock", "cantidad"}},
		{field: FieldSupplierCost, tokens: []string{"costo", "cost"}},
		{field: FieldProfit, tokens: []string{"ganancia", "utilidad", "profit"}},
		{field: FieldNetPrice, tokens: []string{"neto", "sin iva", "precio", "price"}},
		{field: FieldStock, tokens: []string{"stock", "existencia", "cantidad", "inventario"}},
		{field: FieldSupplier, tokens: []string{"proveedor", "supplier"}},
		{field: FieldThickness, tokens: []string{"espesor", "grosor", "thickness"}},
		{field: FieldWidth, tokens: []string{"ancho", "width"}},
		{field: FieldLength, tokens: []string{"largo", "longitud", "length"}},
		{field: FieldColor, tokens: []string{"color"}},
		{field: FieldUse, tokens: []string{"uso", "aplicacion"}},
		{field: FieldType, tokens: []string{"tipo", "categoria", "type"}},
		{field: FieldName, tokens: []string{"producto", "nombre", "descripcion", "name"}},
	}
}

// ColumnResolver maps header rows to ColumnMaps. It is not safe for
// concurrent use.
type ColumnResolver struct {
	matchers []columnMatcher
	fold     transform.Transformer
}

// NewColumnResolver returns a resolver using the built-in synonyms plus
// extra substring tokens per field name (as in Rules.ColumnTokens).
func NewColumnResolver(extra map[string][]string) *ColumnResolver {
	r := &ColumnResolver{
		matchers: defaultMatchers(),
		fold:     transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}
	for i := range r.matchers {
		for _, tok := range extra[string(r.matchers[i].field)] {
			if tok = r.Fold(tok); tok != "" {
				r.matchers[i].tokens = append(r.matchers[i].tokens, tok)
			}
		}
	}
	return r
}

// Fold normalizes a header for matching: accents removed, lowercase,
// punctuation separators turned into single spaces.
func (r *ColumnResolver) Fold(s string) string {
	folded, _, err := transform.String(r.fold, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(c rune) rune {
		switch c {
		case '_', '-', '/', '(', ')', ':', '.':
			return ' '
		}
		return c
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Resolve maps one header row. Labels holds the original header text for
// each resolved field. On a StructuralError the map is empty.
func (r *ColumnResolver) Resolve(header RawRow, partition string) (ColumnMap, map[Field]string, error) {
	if countNonEmpty(header) < MinHeaderColumns {
		return ColumnMap{}, nil, &StructuralError{Partition: partition, Columns: countNonEmpty(header)}
	}

	cols := make(ColumnMap)
	labels := make(map[Field]string)
	for i, h := range header {
		folded := r.Fold(h)
		if folded == "" {
			continue
		}
		for _, m := range r.matchers {
			if !m.matches(folded) {
				continue
			}
			if !cols.Has(m.field) {
				cols[m.field] = i
				labels[m.field] = strings.TrimSpace(h)
			}
			break
		}
	}

	var missing []Field
	for _, f := range RequiredFields {
		if !cols.Has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return ColumnMap{}, nil, &StructuralError{Partition: partition, Columns: len(header), Missing: missing}
	}
	return cols, labels, nil
}

// ResolveHeader looks for the header among the first maxSearch rows, since
// some tabs carry a title or notes above the table. It returns the index of
// the header row. When no row resolves, the error is the one for row 0.
func (r *ColumnResolver) ResolveHeader(rows []RawRow, partition string, maxSearch int) (int, ColumnMap, map[Field]string, error) {
	if len(rows) == 0 {
		return 0, ColumnMap{}, nil, ErrEmptySource
	}
	if maxSearch < 1 {
		maxSearch = 1
	}

	var firstErr error
	for i := 0; i < len(rows) && i < maxSearch; i++ {
		cols, labels, err := r.Resolve(rows[i], partition)
		if err == nil {
			return i, cols, labels, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return 0, ColumnMap{}, nil, firstErr
}

func countNonEmpty(row RawRow) int {
	n := 0
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			n++
		}
	}
	return n
}
