package rdf

var mimeParser = map[string]string{
	"application/ld+json":       "jsonld",
	"text/turtle":                "turtle",
	"text/n3":                    "turtle",
	"application/sparql-update": "internal",
}

var mimeSerializer = map[string]string{
	"application/ld+json": "jsonld",
	"text/turtle":          "turtle",
}

var mimeRdfExt = map[string]string{
	".ttl":    "text/turtle",
	".n3":     "text/n3",
	".rdf":    "application/rdf+xml",
	".jsonld": "application/ld+json",
}
