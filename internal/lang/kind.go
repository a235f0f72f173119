package lang

// Kind classifies a symbol. The set mirrors the LSP SymbolKind enumeration
// so provider results and heuristic results share one vocabulary.
type Kind string

const (
	KindFile          Kind = "file"
	KindModule        Kind = "module"
	KindNamespace     Kind = "namespace"
	KindPackage       Kind = "package"
	KindClass         Kind = "class"
	KindMethod        Kind = "method"
	KindProperty      Kind = "property"
	KindField         Kind = "field"
	KindConstructor   Kind = "constructor"
	KindEnum          Kind = "enum"
	KindInterface     Kind = "interface"
	KindFunction      Kind = "function"
	KindVariable      Kind = "variable"
	KindConstant      Kind = "constant"
	KindString        Kind = "string"
	KindNumber        Kind = "number"
	KindBoolean       Kind = "boolean"
	KindArray         Kind = "array"
	KindObject        Kind = "object"
	KindKey           Kind = "key"
	KindNull          Kind = "null"
	KindEnumMember    Kind = "enumMember"
	KindStruct        Kind = "struct"
	KindEvent         Kind = "event"
	KindOperator      Kind = "operator"
	KindTypeParameter Kind = "typeParameter"
)

// kindByCode indexes kinds by their LSP numeric code (1-based).
var kindByCode = [...]Kind{
	KindFile, KindModule, KindNamespace, KindPackage, KindClass,
	KindMethod, KindProperty, KindField, KindConstructor, KindEnum,
	KindInterface, KindFunction, KindVariable, KindConstant, KindString,
	KindNumber, KindBoolean, KindArray, KindObject, KindKey,
	KindNull, KindEnumMember, KindStruct, KindEvent, KindOperator,
	KindTypeParameter,
}

var codeByKind = func() map[Kind]int {
	m := make(map[Kind]int, len(kindByCode))
	for i, k := range kindByCode {
		m[k] = i + 1
	}
	return m
}()

// KindFromCode maps an LSP numeric symbol kind to a Kind.
// Out-of-range codes fall back to KindFunction.
func KindFromCode(code int) Kind {
	if code < 1 || code > len(kindByCode) {
		return KindFunction
	}
	return kindByCode[code-1]
}

// Code returns the LSP numeric code for k, or the code for KindFunction
// when k is not part of the enumeration.
func (k Kind) Code() int {
	if c, ok := codeByKind[k]; ok {
		return c
	}
	return codeByKind[KindFunction]
}

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }
