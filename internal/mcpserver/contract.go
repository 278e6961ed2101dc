package mcpserver

// CatalogContract describes the stored portfolio document for LLM consumers.
const CatalogContract = `# Portfolio Catalog Format

The catalog is one JSON object. Reads always return it normalized.

## Top-level members

| member        | type              | notes                                            |
|---------------|-------------------|--------------------------------------------------|
| images        | array of Image    | never null                                       |
| categories    | array of string   | never empty; defaults to Editorial, Commercial, Runway |
| collections   | array of Collection | never null                                     |
| heroImage     | string            | file reference of the landing image, may be ""   |
| modelName     | string            |                                                  |
| heroTagline   | string            |                                                  |

## Image

| member      | type    | notes                                                     |
|-------------|---------|-----------------------------------------------------------|
| id          | string  | opaque, unique                                            |
| filename    | string  | full URL when it starts with http:// or https://, otherwise served from /uploads/<filename> |
| title       | string  |                                                           |
| description | string  |                                                           |
| order       | integer | >= 0; display order ascending, ties keep list order       |
| category    | string  | one of categories                                         |
| collection  | string  | "" or a collection registered under the same category     |
| isHero      | boolean | featured on the landing page                              |

## Collection

A collection is identified by the pair (name, category). The same name may
exist under several categories.

## Compatibility

Members not listed here are preserved on every write.
`
