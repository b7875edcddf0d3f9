package types

// EntityKind classifies an extracted code entity.
type EntityKind string

const (
	EntityClass       EntityKind = "class"
	EntityFunction    EntityKind = "function"
	EntityMethod      EntityKind = "method"
	EntityInterface   EntityKind = "interface"
	EntityTypeAlias   EntityKind = "type_alias"
	EntityEnum        EntityKind = "enum"
	EntityVariable    EntityKind = "variable"
	EntityProperty    EntityKind = "property"
	EntityTrait       EntityKind = "trait"
	EntityControlFlow EntityKind = "control_flow"
	EntityRecord      EntityKind = "record"
)

// ImportKind distinguishes same-project file imports from external modules.
type ImportKind string

const (
	ImportFile   ImportKind = "file"
	ImportModule ImportKind = "module"
)

// Parameter describes a single declared parameter of a function or method.
type Parameter struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	DefaultValue string `json:"defaultValue,omitempty"`
	Optional     bool   `json:"optional,omitempty"`
}

// CallSite records a call or constructor expression found inside a
// function or method body, attributed to the innermost enclosing scope.
type CallSite struct {
	Name   string `json:"name"`
	Callee string `json:"callee"`
	IsNew  bool   `json:"isNew"`
	Line   int    `json:"line,omitempty"`
}

// ExtractedCodeEntity is the normalized declaration shape emitted by every
// language parser. FullName is a path- and scope-qualified identifier that
// becomes the graph node name when the entity is ingested.
//
// The JSON field names are a stable interoperability contract.
type ExtractedCodeEntity struct {
	Type                  EntityKind  `json:"type"`
	Name                  string      `json:"name"`
	FullName              string      `json:"fullName"`
	StartLine             int         `json:"startLine"`
	EndLine               int         `json:"endLine"`
	FilePath              string      `json:"filePath"`
	ContainingDirectory   string      `json:"containingDirectory"`
	Signature             string      `json:"signature,omitempty"`
	Docstring             string      `json:"docstring,omitempty"`
	ParentClass           string      `json:"parentClass,omitempty"`
	IsExported            bool        `json:"isExported"`
	IsAsync               bool        `json:"isAsync,omitempty"`
	IsStatic              bool        `json:"isStatic,omitempty"`
	Parameters            []Parameter `json:"parameters,omitempty"`
	ReturnType            string      `json:"returnType,omitempty"`
	Calls                 []CallSite  `json:"calls,omitempty"`
	ImplementedInterfaces []string    `json:"implementedInterfaces,omitempty"`
	ExtendedClasses       []string    `json:"extendedClasses,omitempty"`
	Decorators            []string    `json:"decorators,omitempty"`
	Complexity            int         `json:"complexity,omitempty"`
}

// ExtractedImport is the normalized import shape emitted by every language
// parser. TargetPath is project-relative for same-project files and a bare
// specifier for external modules.
type ExtractedImport struct {
	Type                 ImportKind `json:"type"`
	TargetPath           string     `json:"targetPath"`
	OriginalImportString string     `json:"originalImportString"`
	ImportedSymbols      []string   `json:"importedSymbols,omitempty"`
	IsDynamicImport      bool       `json:"isDynamicImport"`
	IsTypeOnlyImport     bool       `json:"isTypeOnlyImport"`
	StartLine            int        `json:"startLine"`
	EndLine              int        `json:"endLine"`
}
