package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// PythonParser handles Python sources
type PythonParser struct{}

// NewPythonParser creates a Python parser
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

func (p *PythonParser) Language() string { return "python" }

func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyi"}
}

func (p *PythonParser) parse(ctx context.Context, filePath string, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, parseErr(filePath, err)
	}
	if tree.RootNode() == nil {
		return nil, syntaxErr(filePath, "no syntax tree produced")
	}
	return tree, nil
}

var pyBranchKinds = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"for_statement":          true,
	"while_statement":        true,
	"except_clause":          true,
	"conditional_expression": true,
	"case_clause":            true,
}

var pyShortCircuitOps = map[string]bool{
	"and": true,
	"or":  true,
}

var pyNestedScopes = map[string]bool{
	"function_definition": true,
	"class_definition":    true,
	"lambda":              true,
}

// ParseImports extracts import and from-import statements. Relative
// imports (leading dots) are file imports; everything else is a module.
func (p *PythonParser) ParseImports(ctx context.Context, filePath string, content []byte) ([]types.ExtractedImport, error) {
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
			// import a.b, c as d
			for j := 0; j < int(child.ChildCount()); j++ {
				name := child.Child(j)
				switch name.Type() {
				case "dotted_name":
					imports = append(imports, pyImport(child, name.Content(content), nil, content))
				case "aliased_import":
					if dotted := childOfType(name, "dotted_name"); dotted != nil {
						imports = append(imports, pyImport(child, dotted.Content(content), nil, content))
					}
				}
			}
		case "import_from_statement":
			imports = append(imports, p.fromImport(child, content))
		}
	}
	return imports, nil
}

// fromImport handles from X import a, b and from . import c
func (p *PythonParser) fromImport(node *sitter.Node, content []byte) types.ExtractedImport {
	target := ""
	var symbols []string
	seenModule := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			if !seenModule {
				target = child.Content(content)
				seenModule = true
			} else {
				symbols = append(symbols, child.Content(content))
			}
		case "relative_import":
			target = child.Content(content)
			seenModule = true
		case "aliased_import":
			symbols = append(symbols, child.Content(content))
		case "wildcard_import":
			symbols = append(symbols, "*")
		}
	}
	return pyImport(node, target, symbols, content)
}

func pyImport(node *sitter.Node, target string, symbols []string, content []byte) types.ExtractedImport {
	kind := types.ImportModule
	if strings.HasPrefix(target, ".") {
		kind = types.ImportFile
	}
	return types.ExtractedImport{
		Type:                 kind,
		TargetPath:           target,
		OriginalImportString: node.Content(content),
		ImportedSymbols:      symbols,
		StartLine:            startLine(node),
		EndLine:              endLine(node),
	}
}

// ParseCodeEntities extracts top-level functions, classes, methods, and
// module-level assignments. Python has no export keyword; names not
// starting with an underscore are treated as exported.
func (p *PythonParser) ParseCodeEntities(ctx context.Context, filePath string, content []byte, projectRoot string, opts Options) ([]types.ExtractedCodeEntity, error) {
	tree, err := p.parse(ctx, filePath, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	vctx := visitContext{relPath: projectRelative(projectRoot, filePath)}
	entities := make([]types.ExtractedCodeEntity, 0)
	p.visitBlock(tree.RootNode(), content, filePath, vctx, opts, false, &entities)
	return entities, nil
}

// visitBlock walks a module or class body block
func (p *PythonParser) visitBlock(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, inClass bool, entities *[]types.ExtractedCodeEntity) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "function_definition":
			p.visitFunction(child, content, filePath, vctx, opts, nil, inClass, entities)
		case "class_definition":
			p.visitClass(child, content, filePath, vctx, opts, nil, entities)
		case "decorated_definition":
			p.visitDecorated(child, content, filePath, vctx, opts, inClass, entities)
		case "expression_statement":
			if !inClass {
				p.visitAssignment(child, content, filePath, vctx, entities)
			}
		}
	}
}

// visitDecorated peels decorators off and dispatches the wrapped definition
func (p *PythonParser) visitDecorated(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, inClass bool, entities *[]types.ExtractedCodeEntity) {
	var decorators []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "decorator":
			if opts.IncludeDecorators {
				decorators = append(decorators, child.Content(content))
			}
		case "function_definition":
			p.visitFunction(child, content, filePath, vctx, opts, decorators, inClass, entities)
		case "class_definition":
			p.visitClass(child, content, filePath, vctx, opts, decorators, entities)
		}
	}
}

func pyExported(name string) bool {
	return !strings.HasPrefix(name, "_")
}

func (p *PythonParser) baseEntity(n *sitter.Node, content []byte, filePath, name string, kind types.EntityKind, vctx visitContext) types.ExtractedCodeEntity {
	entity := types.ExtractedCodeEntity{
		Type:                kind,
		Name:                name,
		FullName:            qualifyName(vctx.relPath, vctx.scope, name),
		StartLine:           startLine(n),
		EndLine:             endLine(n),
		FilePath:            filePath,
		ContainingDirectory: containingDir(filePath),
		IsExported:          pyExported(name),
	}
	if len(vctx.scope) > 0 {
		entity.ParentClass = vctx.scope[len(vctx.scope)-1]
	}
	return entity
}

func (p *PythonParser) visitFunction(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, decorators []string, inClass bool, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}

	kind := types.EntityFunction
	if inClass {
		kind = types.EntityMethod
	}
	entity := p.baseEntity(n, content, filePath, name, kind, vctx)
	entity.IsAsync = hasChildOfType(n, "async")
	entity.Decorators = decorators
	entity.IsStatic = hasDecorator(decorators, "staticmethod") || hasDecorator(decorators, "classmethod")
	entity.Parameters = p.parameters(n.ChildByFieldName("parameters"), content)
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		entity.ReturnType = rt.Content(content)
	}

	if body := n.ChildByFieldName("body"); body != nil {
		entity.Signature = strings.TrimSpace(string(content[n.StartByte():body.StartByte()]))
		entity.Docstring = pyDocstring(body, content)
		entity.Calls = p.callSites(body, content)
		if opts.IncludeComplexity {
			entity.Complexity = 1 + countBranches(body, content, pyBranchKinds, pyShortCircuitOps, pyNestedScopes)
		}
	}

	*entities = append(*entities, entity)
}

func (p *PythonParser) visitClass(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, decorators []string, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}

	entity := p.baseEntity(n, content, filePath, name, types.EntityClass, vctx)
	entity.Decorators = decorators
	entity.Signature = "class " + name

	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.ChildCount()); i++ {
			child := supers.Child(i)
			if child.Type() == "identifier" || child.Type() == "attribute" {
				entity.ExtendedClasses = append(entity.ExtendedClasses, child.Content(content))
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body != nil {
		entity.Docstring = pyDocstring(body, content)
	}
	*entities = append(*entities, entity)

	if body != nil {
		p.visitBlock(body, content, filePath, vctx.push(name), opts, true, entities)
	}
}

// visitAssignment emits module-level name = value bindings as variables
func (p *PythonParser) visitAssignment(n *sitter.Node, content []byte, filePath string, vctx visitContext, entities *[]types.ExtractedCodeEntity) {
	assign := childOfType(n, "assignment")
	if assign == nil {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return
	}
	name := left.Content(content)
	entity := p.baseEntity(n, content, filePath, name, types.EntityVariable, vctx)
	if t := assign.ChildByFieldName("type"); t != nil {
		entity.ReturnType = t.Content(content)
	}
	*entities = append(*entities, entity)
}

// pyDocstring returns a leading string literal in a body block
func pyDocstring(body *sitter.Node, content []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" {
		return ""
	}
	str := childOfType(first, "string")
	if str == nil {
		return ""
	}
	text := str.Content(content)
	text = strings.Trim(text, "\"'")
	return strings.TrimSpace(text)
}

func (p *PythonParser) callSites(body *sitter.Node, content []byte) []types.CallSite {
	calls := make([]types.CallSite, 0)
	p.collectCalls(body, content, &calls)
	return calls
}

func (p *PythonParser) collectCalls(n *sitter.Node, content []byte, calls *[]types.CallSite) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if pyNestedScopes[child.Type()] {
			continue
		}
		if child.Type() == "call" {
			if fn := child.ChildByFieldName("function"); fn != nil {
				name := fn.Content(content)
				callee := lastSegment(name, ".")
				// Calling a capitalized name is conventionally construction
				isNew := callee != "" && callee[0] >= 'A' && callee[0] <= 'Z'
				*calls = append(*calls, types.CallSite{
					Name:   name,
					Callee: callee,
					IsNew:  isNew,
					Line:   startLine(child),
				})
			}
		}
		p.collectCalls(child, content, calls)
	}
}

func (p *PythonParser) parameters(n *sitter.Node, content []byte) []types.Parameter {
	if n == nil {
		return nil
	}
	params := make([]types.Parameter, 0)
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "identifier":
			name := child.Content(content)
			if name == "self" || name == "cls" {
				continue
			}
			params = append(params, types.Parameter{Name: name})
		case "typed_parameter":
			param := types.Parameter{}
			if ident := childOfType(child, "identifier"); ident != nil {
				param.Name = ident.Content(content)
			}
			if t := child.ChildByFieldName("type"); t != nil {
				param.Type = t.Content(content)
			}
			if param.Name != "" {
				params = append(params, param)
			}
		case "default_parameter", "typed_default_parameter":
			param := types.Parameter{
				Name:     fieldText(child, "name", content),
				Optional: true,
			}
			if t := child.ChildByFieldName("type"); t != nil {
				param.Type = t.Content(content)
			}
			if v := child.ChildByFieldName("value"); v != nil {
				param.DefaultValue = v.Content(content)
			}
			if param.Name != "" {
				params = append(params, param)
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			if ident := childOfType(child, "identifier"); ident != nil {
				prefix := "*"
				if child.Type() == "dictionary_splat_pattern" {
					prefix = "**"
				}
				params = append(params, types.Parameter{Name: prefix + ident.Content(content)})
			}
		}
	}
	return params
}

func hasDecorator(decorators []string, name string) bool {
	for _, d := range decorators {
		if strings.TrimPrefix(d, "@") == name {
			return true
		}
	}
	return false
}
