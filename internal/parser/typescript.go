package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// TypeScriptParser handles TypeScript and JavaScript sources
type TypeScriptParser struct{}

// NewTypeScriptParser creates a TypeScript/JavaScript parser
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{}
}

// Language returns the canonical language name
func (p *TypeScriptParser) Language() string { return "typescript" }

// Extensions returns the file extensions this parser handles
func (p *TypeScriptParser) Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
}

func (p *TypeScriptParser) grammar(filePath string) *sitter.Language {
	switch {
	case strings.HasSuffix(filePath, ".tsx"):
		return tsx.GetLanguage()
	case strings.HasSuffix(filePath, ".js"), strings.HasSuffix(filePath, ".jsx"),
		strings.HasSuffix(filePath, ".mjs"), strings.HasSuffix(filePath, ".cjs"):
		return javascript.GetLanguage()
	default:
		return typescript.GetLanguage()
	}
}

func (p *TypeScriptParser) parse(ctx context.Context, filePath string, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(p.grammar(filePath))
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, parseErr(filePath, err)
	}
	if tree.RootNode() == nil {
		return nil, syntaxErr(filePath, "no syntax tree produced")
	}
	return tree, nil
}

// tsBranchKinds are the node kinds counted for cyclomatic complexity
var tsBranchKinds = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
}

var tsShortCircuitOps = map[string]bool{
	"&&": true,
	"||": true,
	"??": true,
}

var tsNestedScopes = map[string]bool{
	"function_declaration": true,
	"function_expression":  true,
	"arrow_function":       true,
	"method_definition":    true,
	"class_declaration":    true,
}

// ParseImports extracts ES module imports, re-exports, CommonJS requires,
// and dynamic import() expressions
func (p *TypeScriptParser) ParseImports(ctx context.Context, filePath string, content []byte) ([]types.ExtractedImport, error) {
	tree, err := p.parse(ctx, filePath, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	imports := make([]types.ExtractedImport, 0)
	root := tree.RootNode()

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_statement":
			imports = append(imports, p.importStatement(child, content))
		case "export_statement":
			// Re-export: export { Foo } from './bar'
			if src := childOfType(child, "string"); src != nil {
				imports = append(imports, types.ExtractedImport{
					Type:                 importKindFor(stringContent(src, content)),
					TargetPath:           stringContent(src, content),
					OriginalImportString: child.Content(content),
					ImportedSymbols:      p.exportedNames(child, content),
					StartLine:            startLine(child),
					EndLine:              endLine(child),
				})
			}
		case "lexical_declaration", "variable_declaration":
			if imp, ok := p.commonJSRequire(child, content); ok {
				imports = append(imports, imp)
			}
		}
	}

	// Dynamic import() may appear anywhere in the file
	p.collectDynamicImports(root, content, &imports)

	return imports, nil
}

// importStatement converts one ES import into an ExtractedImport
func (p *TypeScriptParser) importStatement(node *sitter.Node, content []byte) types.ExtractedImport {
	imp := types.ExtractedImport{
		OriginalImportString: node.Content(content),
		StartLine:            startLine(node),
		EndLine:              endLine(node),
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "type":
			imp.IsTypeOnlyImport = true
		case "import_clause":
			imp.ImportedSymbols = p.importedNames(child, content)
		case "string":
			imp.TargetPath = stringContent(child, content)
		}
	}

	imp.Type = importKindFor(imp.TargetPath)
	return imp
}

// importedNames flattens default, namespace, and named import specifiers
func (p *TypeScriptParser) importedNames(clause *sitter.Node, content []byte) []string {
	names := make([]string, 0)
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier":
			names = append(names, child.Content(content))
		case "namespace_import":
			if ident := childOfType(child, "identifier"); ident != nil {
				names = append(names, "* as "+ident.Content(content))
			}
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				if spec := child.Child(j); spec.Type() == "import_specifier" {
					names = append(names, spec.Content(content))
				}
			}
		}
	}
	return names
}

// exportedNames collects the re-exported symbol names from an export clause
func (p *TypeScriptParser) exportedNames(node *sitter.Node, content []byte) []string {
	clause := childOfType(node, "export_clause")
	if clause == nil {
		return nil
	}
	names := make([]string, 0)
	for i := 0; i < int(clause.ChildCount()); i++ {
		if spec := clause.Child(i); spec.Type() == "export_specifier" {
			names = append(names, spec.Content(content))
		}
	}
	return names
}

// commonJSRequire matches const foo = require('bar')
func (p *TypeScriptParser) commonJSRequire(node *sitter.Node, content []byte) (types.ExtractedImport, bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		decl := node.Child(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		call := childOfType(decl, "call_expression")
		if call == nil {
			continue
		}
		fn := call.ChildByFieldName("function")
		if fn == nil || fn.Content(content) != "require" {
			continue
		}
		args := call.ChildByFieldName("arguments")
		if args == nil {
			continue
		}
		target := childOfType(args, "string")
		if target == nil {
			continue
		}
		path := stringContent(target, content)
		return types.ExtractedImport{
			Type:                 importKindFor(path),
			TargetPath:           path,
			OriginalImportString: node.Content(content),
			StartLine:            startLine(node),
			EndLine:              endLine(node),
		}, true
	}
	return types.ExtractedImport{}, false
}

// collectDynamicImports finds import('...') call expressions anywhere
func (p *TypeScriptParser) collectDynamicImports(n *sitter.Node, content []byte, imports *[]types.ExtractedImport) {
	if n.Type() == "call_expression" {
		fn := n.ChildByFieldName("function")
		if fn != nil && fn.Type() == "import" {
			if args := n.ChildByFieldName("arguments"); args != nil {
				if target := childOfType(args, "string"); target != nil {
					path := stringContent(target, content)
					*imports = append(*imports, types.ExtractedImport{
						Type:                 importKindFor(path),
						TargetPath:           path,
						OriginalImportString: n.Content(content),
						IsDynamicImport:      true,
						StartLine:            startLine(n),
						EndLine:              endLine(n),
					})
				}
			}
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		p.collectDynamicImports(n.Child(i), content, imports)
	}
}

// ParseCodeEntities extracts classes, functions, methods, interfaces,
// type aliases, enums, and exported variables
func (p *TypeScriptParser) ParseCodeEntities(ctx context.Context, filePath string, content []byte, projectRoot string, opts Options) ([]types.ExtractedCodeEntity, error) {
	tree, err := p.parse(ctx, filePath, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	vctx := visitContext{relPath: projectRelative(projectRoot, filePath)}
	entities := make([]types.ExtractedCodeEntity, 0)
	p.visitStatements(tree.RootNode(), content, filePath, vctx, opts, nil, &entities)
	return entities, nil
}

// visitStatements walks the children of a program or statement block
func (p *TypeScriptParser) visitStatements(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, decorators []string, entities *[]types.ExtractedCodeEntity) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "export_statement":
			p.visitExport(child, content, filePath, vctx, opts, entities)
		case "function_declaration", "generator_function_declaration":
			p.visitFunction(child, content, filePath, vctx, opts, decorators, entities)
		case "class_declaration", "abstract_class_declaration":
			p.visitClass(child, content, filePath, vctx, opts, decorators, entities)
		case "interface_declaration":
			p.visitInterface(child, content, filePath, vctx, entities)
		case "type_alias_declaration":
			p.visitTypeAlias(child, content, filePath, vctx, entities)
		case "enum_declaration":
			p.visitEnum(child, content, filePath, vctx, entities)
		case "lexical_declaration", "variable_declaration":
			p.visitVariables(child, content, filePath, vctx, entities)
		}
	}
}

// visitExport unwraps export statements, marking the inner declaration
// exported and carrying any decorators down to it
func (p *TypeScriptParser) visitExport(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, entities *[]types.ExtractedCodeEntity) {
	exported := vctx.withExported(true)
	var decorators []string
	if opts.IncludeDecorators {
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child.Type() == "decorator" {
				decorators = append(decorators, child.Content(content))
			}
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "function_declaration", "generator_function_declaration":
			p.visitFunction(child, content, filePath, exported, opts, decorators, entities)
		case "class_declaration", "abstract_class_declaration":
			p.visitClass(child, content, filePath, exported, opts, decorators, entities)
		case "interface_declaration":
			p.visitInterface(child, content, filePath, exported, entities)
		case "type_alias_declaration":
			p.visitTypeAlias(child, content, filePath, exported, entities)
		case "enum_declaration":
			p.visitEnum(child, content, filePath, exported, entities)
		case "lexical_declaration", "variable_declaration":
			p.visitVariables(child, content, filePath, exported, entities)
		}
	}
}

func (p *TypeScriptParser) baseEntity(n *sitter.Node, content []byte, filePath, name string, kind types.EntityKind, vctx visitContext) types.ExtractedCodeEntity {
	entity := types.ExtractedCodeEntity{
		Type:                kind,
		Name:                name,
		FullName:            qualifyName(vctx.relPath, vctx.scope, name),
		StartLine:           startLine(n),
		EndLine:             endLine(n),
		FilePath:            filePath,
		ContainingDirectory: containingDir(filePath),
		Docstring:           precedingComment(n, content),
		IsExported:          vctx.exported,
	}
	if len(vctx.scope) > 0 {
		entity.ParentClass = vctx.scope[len(vctx.scope)-1]
	}
	return entity
}

func (p *TypeScriptParser) visitFunction(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, decorators []string, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}

	entity := p.baseEntity(n, content, filePath, name, types.EntityFunction, vctx)
	entity.IsAsync = hasChildOfType(n, "async")
	entity.Decorators = decorators
	entity.Parameters = p.parameters(n.ChildByFieldName("parameters"), content)
	entity.ReturnType = p.returnType(n, content)
	entity.Signature = p.signature(n, content)

	if body := n.ChildByFieldName("body"); body != nil {
		entity.Calls = p.callSites(body, content)
		if opts.IncludeComplexity {
			entity.Complexity = 1 + countBranches(body, content, tsBranchKinds, tsShortCircuitOps, tsNestedScopes)
		}
	}

	*entities = append(*entities, entity)
}

func (p *TypeScriptParser) visitClass(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, decorators []string, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}

	entity := p.baseEntity(n, content, filePath, name, types.EntityClass, vctx)
	entity.Decorators = decorators
	entity.ExtendedClasses, entity.ImplementedInterfaces = p.classHeritage(n, content)
	entity.Signature = "class " + name
	*entities = append(*entities, entity)

	if body := n.ChildByFieldName("body"); body != nil {
		p.visitClassBody(body, content, filePath, vctx.push(name), opts, entities)
	}
}

// visitClassBody extracts methods and properties, attributed to the class
func (p *TypeScriptParser) visitClassBody(body *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, entities *[]types.ExtractedCodeEntity) {
	var pendingDecorators []string
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "decorator":
			if opts.IncludeDecorators {
				pendingDecorators = append(pendingDecorators, child.Content(content))
			}
		case "method_definition":
			p.visitMethod(child, content, filePath, vctx, opts, pendingDecorators, entities)
			pendingDecorators = nil
		case "public_field_definition", "property_signature":
			p.visitProperty(child, content, filePath, vctx, pendingDecorators, entities)
			pendingDecorators = nil
		default:
			pendingDecorators = nil
		}
	}
}

func (p *TypeScriptParser) visitMethod(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, decorators []string, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}

	entity := p.baseEntity(n, content, filePath, name, types.EntityMethod, vctx)
	entity.IsAsync = hasChildOfType(n, "async")
	entity.IsStatic = hasChildOfType(n, "static")
	entity.Decorators = decorators
	entity.Parameters = p.parameters(n.ChildByFieldName("parameters"), content)
	entity.ReturnType = p.returnType(n, content)
	entity.Signature = p.signature(n, content)
	// Methods are reachable when their class is
	entity.IsExported = vctx.exported

	if body := n.ChildByFieldName("body"); body != nil {
		entity.Calls = p.callSites(body, content)
		if opts.IncludeComplexity {
			entity.Complexity = 1 + countBranches(body, content, tsBranchKinds, tsShortCircuitOps, tsNestedScopes)
		}
	}

	*entities = append(*entities, entity)
}

func (p *TypeScriptParser) visitProperty(n *sitter.Node, content []byte, filePath string, vctx visitContext, decorators []string, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}
	entity := p.baseEntity(n, content, filePath, name, types.EntityProperty, vctx)
	entity.IsStatic = hasChildOfType(n, "static")
	entity.Decorators = decorators
	if t := n.ChildByFieldName("type"); t != nil {
		entity.ReturnType = strings.TrimPrefix(t.Content(content), ": ")
	}
	*entities = append(*entities, entity)
}

func (p *TypeScriptParser) visitInterface(n *sitter.Node, content []byte, filePath string, vctx visitContext, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}
	entity := p.baseEntity(n, content, filePath, name, types.EntityInterface, vctx)
	entity.Signature = "interface " + name
	if heritage := childOfType(n, "extends_type_clause"); heritage != nil {
		for i := 0; i < int(heritage.ChildCount()); i++ {
			if child := heritage.Child(i); child.Type() == "type_identifier" {
				entity.ExtendedClasses = append(entity.ExtendedClasses, child.Content(content))
			}
		}
	}
	*entities = append(*entities, entity)
}

func (p *TypeScriptParser) visitTypeAlias(n *sitter.Node, content []byte, filePath string, vctx visitContext, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}
	entity := p.baseEntity(n, content, filePath, name, types.EntityTypeAlias, vctx)
	entity.Signature = "type " + name
	*entities = append(*entities, entity)
}

func (p *TypeScriptParser) visitEnum(n *sitter.Node, content []byte, filePath string, vctx visitContext, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}
	entity := p.baseEntity(n, content, filePath, name, types.EntityEnum, vctx)
	entity.Signature = "enum " + name
	*entities = append(*entities, entity)
}

// visitVariables emits one entity per declarator in a const/let/var
func (p *TypeScriptParser) visitVariables(n *sitter.Node, content []byte, filePath string, vctx visitContext, entities *[]types.ExtractedCodeEntity) {
	for i := 0; i < int(n.ChildCount()); i++ {
		decl := n.Child(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		name := fieldText(decl, "name", content)
		if name == "" {
			continue
		}
		// Skip require() declarators; those are imports
		if call := childOfType(decl, "call_expression"); call != nil {
			if fn := call.ChildByFieldName("function"); fn != nil && fn.Content(content) == "require" {
				continue
			}
		}
		entity := p.baseEntity(n, content, filePath, name, types.EntityVariable, vctx)
		*entities = append(*entities, entity)
	}
}

// callSites collects call and new expressions beneath a body, attributed
// to this scope only: nested function scopes keep their own calls
func (p *TypeScriptParser) callSites(body *sitter.Node, content []byte) []types.CallSite {
	calls := make([]types.CallSite, 0)
	p.collectCalls(body, content, &calls)
	return calls
}

func (p *TypeScriptParser) collectCalls(n *sitter.Node, content []byte, calls *[]types.CallSite) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		kind := child.Type()
		if tsNestedScopes[kind] {
			continue
		}
		switch kind {
		case "call_expression":
			fn := child.ChildByFieldName("function")
			if fn != nil && fn.Type() != "import" {
				name := fn.Content(content)
				*calls = append(*calls, types.CallSite{
					Name:   name,
					Callee: lastSegment(name, "."),
					IsNew:  false,
					Line:   startLine(child),
				})
			}
		case "new_expression":
			if ctor := child.ChildByFieldName("constructor"); ctor != nil {
				name := ctor.Content(content)
				*calls = append(*calls, types.CallSite{
					Name:   name,
					Callee: lastSegment(name, "."),
					IsNew:  true,
					Line:   startLine(child),
				})
			}
		}
		p.collectCalls(child, content, calls)
	}
}

// parameters converts a formal_parameters node into Parameter records
func (p *TypeScriptParser) parameters(n *sitter.Node, content []byte) []types.Parameter {
	if n == nil {
		return nil
	}
	params := make([]types.Parameter, 0)
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "required_parameter", "optional_parameter", "rest_parameter":
			param := types.Parameter{
				Name:     fieldText(child, "pattern", content),
				Optional: child.Type() == "optional_parameter",
			}
			if t := child.ChildByFieldName("type"); t != nil {
				param.Type = strings.TrimPrefix(t.Content(content), ": ")
			}
			if v := child.ChildByFieldName("value"); v != nil {
				param.DefaultValue = v.Content(content)
			}
			if param.Name != "" {
				params = append(params, param)
			}
		case "identifier":
			// Plain JS parameter
			params = append(params, types.Parameter{Name: child.Content(content)})
		}
	}
	return params
}

func (p *TypeScriptParser) returnType(n *sitter.Node, content []byte) string {
	rt := n.ChildByFieldName("return_type")
	if rt == nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimPrefix(rt.Content(content), ":"), " ")
}

// signature is the declaration header up to the body
func (p *TypeScriptParser) signature(n *sitter.Node, content []byte) string {
	body := n.ChildByFieldName("body")
	if body == nil {
		return strings.TrimSpace(n.Content(content))
	}
	header := content[n.StartByte():body.StartByte()]
	return strings.TrimSpace(string(header))
}

// classHeritage splits extends/implements lists from a class declaration
func (p *TypeScriptParser) classHeritage(n *sitter.Node, content []byte) (extends, implements []string) {
	heritage := childOfType(n, "class_heritage")
	if heritage == nil {
		return nil, nil
	}
	for i := 0; i < int(heritage.ChildCount()); i++ {
		clause := heritage.Child(i)
		switch clause.Type() {
		case "extends_clause":
			for j := 0; j < int(clause.ChildCount()); j++ {
				child := clause.Child(j)
				if child.Type() == "identifier" || child.Type() == "type_identifier" || child.Type() == "member_expression" {
					extends = append(extends, child.Content(content))
				}
			}
		case "implements_clause":
			for j := 0; j < int(clause.ChildCount()); j++ {
				child := clause.Child(j)
				if child.Type() == "type_identifier" || child.Type() == "generic_type" {
					implements = append(implements, child.Content(content))
				}
			}
		}
	}
	return extends, implements
}

// importKindFor classifies relative specifiers as file imports and bare
// specifiers as external modules
func importKindFor(specifier string) types.ImportKind {
	if strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		return types.ImportFile
	}
	return types.ImportModule
}

// stringContent strips the quotes from a string literal node
func stringContent(n *sitter.Node, content []byte) string {
	text := n.Content(content)
	return strings.Trim(text, "'\"`")
}

func containingDir(filePath string) string {
	idx := strings.LastIndexAny(filePath, "/\\")
	if idx < 0 {
		return "."
	}
	return filePath[:idx]
}
