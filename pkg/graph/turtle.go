package graph

import (
	"fmt"
	"sort"
	"strings"
)

// PrefixMapping associates a short prefix label with its namespace URI.
type PrefixMapping struct {
	Prefix    string
	Namespace string
}

// TurtleSerializer writes a TripleStore as Turtle.
type TurtleSerializer struct {
	prefixMappings []PrefixMapping
	namespaceIndex map[string]string // namespace -> prefix
}

// TurtleOption configures a TurtleSerializer.
type TurtleOption func(*TurtleSerializer)

// WithPrefix adds a prefix mapping.
func WithPrefix(prefix, namespace string) TurtleOption {
	return func(serializer *TurtleSerializer) {
		serializer.prefixMappings = append(serializer.prefixMappings, PrefixMapping{Prefix: prefix, Namespace: namespace})
	}
}

// NewTurtleSerializer creates a serializer with the rdf, rdfs, dc, eli and
// hukum prefixes declared.
func NewTurtleSerializer(options ...TurtleOption) *TurtleSerializer {
	serializer := &TurtleSerializer{
		prefixMappings: []PrefixMapping{
			{Prefix: "rdf", Namespace: NamespaceRDF},
			{Prefix: "rdfs", Namespace: NamespaceRDFS},
			{Prefix: "dc", Namespace: NamespaceDC},
			{Prefix: "eli", Namespace: NamespaceELI},
			{Prefix: "hukum", Namespace: NamespaceHukum},
		},
	}
	for _, option := range options {
		option(serializer)
	}
	serializer.namespaceIndex = make(map[string]string, len(serializer.prefixMappings))
	for _, mapping := range serializer.prefixMappings {
		serializer.namespaceIndex[mapping.Namespace] = mapping.Prefix
	}
	return serializer
}

// Serialize renders every triple in the store, grouped by subject with
// rdf:type first.
func (serializer *TurtleSerializer) Serialize(store *TripleStore) string {
	var builder strings.Builder

	sortedPrefixes := append([]PrefixMapping(nil), serializer.prefixMappings...)
	sort.Slice(sortedPrefixes, func(i, j int) bool { return sortedPrefixes[i].Prefix < sortedPrefixes[j].Prefix })
	for _, mapping := range sortedPrefixes {
		fmt.Fprintf(&builder, "@prefix %s: <%s> .\n", mapping.Prefix, mapping.Namespace)
	}

	subjectGroups := make(map[string]map[string][]string)
	var subjectOrder []string
	for _, triple := range store.All() {
		if _, exists := subjectGroups[triple.Subject]; !exists {
			subjectGroups[triple.Subject] = make(map[string][]string)
			subjectOrder = append(subjectOrder, triple.Subject)
		}
		subjectGroups[triple.Subject][triple.Predicate] = append(subjectGroups[triple.Subject][triple.Predicate], triple.Object)
	}

	for _, subject := range subjectOrder {
		builder.WriteString("\n")
		serializer.writeSubjectGroup(&builder, subject, subjectGroups[subject])
	}
	return builder.String()
}

func (serializer *TurtleSerializer) writeSubjectGroup(builder *strings.Builder, subject string, predicateObjectMap map[string][]string) {
	builder.WriteString(serializer.formatResource(subject))

	predicates := make([]string, 0, len(predicateObjectMap))
	for predicate := range predicateObjectMap {
		if predicate != RDFType {
			predicates = append(predicates, predicate)
		}
	}
	sort.Strings(predicates)
	if _, ok := predicateObjectMap[RDFType]; ok {
		predicates = append([]string{RDFType}, predicates...)
	}

	for predicateIndex, predicate := range predicates {
		if predicateIndex == 0 {
			builder.WriteString(" ")
		} else {
			builder.WriteString(" ;\n    ")
		}
		if predicate == RDFType {
			builder.WriteString("a")
		} else {
			builder.WriteString(serializer.formatResource(predicate))
		}
		for objectIndex, object := range predicateObjectMap[predicate] {
			if objectIndex > 0 {
				builder.WriteString(" ,\n        ")
			} else {
				builder.WriteString(" ")
			}
			builder.WriteString(serializer.formatObject(object))
		}
	}
	builder.WriteString(" .\n")
}

// formatResource compacts a full URI against the declared prefixes, or
// wraps it in angle brackets. Prefixed names pass through.
func (serializer *TurtleSerializer) formatResource(value string) string {
	if !isFullURI(value) {
		return value
	}
	bestNamespace := ""
	for namespace := range serializer.namespaceIndex {
		if strings.HasPrefix(value, namespace) && len(namespace) > len(bestNamespace) && isValidLocalName(value[len(namespace):]) {
			bestNamespace = namespace
		}
	}
	if bestNamespace != "" {
		return serializer.namespaceIndex[bestNamespace] + ":" + value[len(bestNamespace):]
	}
	return "<" + escapeIRI(value) + ">"
}

func (serializer *TurtleSerializer) formatObject(value string) string {
	if strings.HasPrefix(value, `"`) {
		return value
	}
	return serializer.formatResource(value)
}

// Literal returns value as a quoted Turtle string literal, ready to be used
// as a triple object.
func Literal(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`).Replace(value)
	return `"` + escaped + `"`
}

func isFullURI(value string) bool {
	return strings.HasPrefix(value, "http://") ||
		strings.HasPrefix(value, "https://") ||
		strings.HasPrefix(value, "urn:")
}

func isValidLocalName(localName string) bool {
	if localName == "" {
		return false
	}
	return !strings.ContainsAny(localName, " \t\n\r<>\"{}|^`\\/#()")
}

func escapeIRI(iri string) string {
	return strings.NewReplacer(
		"<", `\u003C`,
		">", `\u003E`,
		`"`, `\u0022`,
		" ", `\u0020`,
		"{", `\u007B`,
		"}", `\u007D`,
	).Replace(iri)
}
