// Package graph exports a statute's structure and cross-references as RDF
// triples, serialized as Turtle.
package graph

// Namespace URIs.
const (
	// NamespaceHukum is the namespace for statute structure predicates.
	NamespaceHukum = "https://hukum.dev/ontology#"

	NamespaceRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceDC   = "http://purl.org/dc/terms/"

	// NamespaceELI is the European Legislation Identifier ontology, whose
	// structural vocabulary fits Indonesian statutes as well.
	NamespaceELI = "http://data.europa.eu/eli/ontology#"
)

// RDFType is rdf:type.
const RDFType = "rdf:type"

// Classes.
const (
	ClassStatute    = "hukum:Statute"
	ClassSection    = "hukum:Section"
	ClassPasal      = "hukum:Pasal"
	ClassAyat       = "hukum:Ayat"
	ClassExternal   = "hukum:ExternalLaw"
	ClassPenjelasan = "hukum:Penjelasan"
)

// Predicates.
const (
	PropTitle      = "eli:title"
	PropTypeDoc    = "eli:type_document"
	PropNumber     = "eli:id_local"
	PropIsPartOf   = "eli:is_part_of"
	PropCites      = "eli:cites"
	PropYear       = "dc:date"
	PropKind       = "hukum:kind"
	PropNumberText = "hukum:number"
	PropBab        = "hukum:bab"
	PropBagian     = "hukum:bagian"
	PropExplains   = "hukum:explains"
	PropRawText    = "hukum:rawText"
	PropLabel      = "rdfs:label"
)
