package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// PHPParser handles PHP sources
type PHPParser struct{}

// NewPHPParser creates a PHP parser
func NewPHPParser() *PHPParser {
	return &PHPParser{}
}

func (p *PHPParser) Language() string { return "php" }

func (p *PHPParser) Extensions() []string {
	return []string{".php"}
}

func (p *PHPParser) parse(ctx context.Context, filePath string, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, parseErr(filePath, err)
	}
	if tree.RootNode() == nil {
		return nil, syntaxErr(filePath, "no syntax tree produced")
	}
	return tree, nil
}

var phpBranchKinds = map[string]bool{
	"if_statement":                 true,
	"else_if_clause":               true,
	"for_statement":                true,
	"foreach_statement":            true,
	"while_statement":              true,
	"do_statement":                 true,
	"case_statement":               true,
	"catch_clause":                 true,
	"conditional_expression":       true,
	"match_conditional_expression": true,
}

var phpShortCircuitOps = map[string]bool{
	"&&":  true,
	"||":  true,
	"and": true,
	"or":  true,
	"??":  true,
}

var phpNestedScopes = map[string]bool{
	"function_definition": true,
	"method_declaration":  true,
	"anonymous_function":  true,
	"arrow_function":      true,
	"class_declaration":   true,
}

// ParseImports extracts use declarations plus include/require expressions.
// use statements target namespaces (modules); include/require with a string
// literal targets a file.
func (p *PHPParser) ParseImports(ctx context.Context, filePath string, content []byte) ([]types.ExtractedImport, error) {
	tree, err := p.parse(ctx, filePath, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	imports := make([]types.ExtractedImport, 0)
	p.collectImports(tree.RootNode(), content, &imports)
	return imports, nil
}

func (p *PHPParser) collectImports(n *sitter.Node, content []byte, imports *[]types.ExtractedImport) {
	switch n.Type() {
	case "namespace_use_declaration":
		for i := 0; i < int(n.ChildCount()); i++ {
			clause := n.Child(i)
			if clause.Type() != "namespace_use_clause" {
				continue
			}
			target := ""
			if qn := childOfType(clause, "qualified_name"); qn != nil {
				target = qn.Content(content)
			} else if name := childOfType(clause, "name"); name != nil {
				target = name.Content(content)
			}
			if target == "" {
				continue
			}
			*imports = append(*imports, types.ExtractedImport{
				Type:                 types.ImportModule,
				TargetPath:           target,
				OriginalImportString: n.Content(content),
				ImportedSymbols:      []string{lastSegment(target, "\\")},
				StartLine:            startLine(n),
				EndLine:              endLine(n),
			})
		}
		return
	case "include_expression", "include_once_expression",
		"require_expression", "require_once_expression":
		if target := p.includeTarget(n, content); target != "" {
			*imports = append(*imports, types.ExtractedImport{
				Type:                 types.ImportFile,
				TargetPath:           target,
				OriginalImportString: n.Content(content),
				StartLine:            startLine(n),
				EndLine:              endLine(n),
			})
		}
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		p.collectImports(n.Child(i), content, imports)
	}
}

// includeTarget resolves a plain string argument; computed paths with
// __DIR__ concatenation keep only the trailing literal
func (p *PHPParser) includeTarget(n *sitter.Node, content []byte) string {
	var last *sitter.Node
	var find func(node *sitter.Node)
	find = func(node *sitter.Node) {
		if node.Type() == "string" || node.Type() == "encapsed_string" {
			last = node
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			find(node.Child(i))
		}
	}
	find(n)
	if last == nil {
		return ""
	}
	return strings.Trim(last.Content(content), "'\"")
}

// ParseCodeEntities extracts classes, interfaces, traits, enums, methods,
// functions, and class properties, qualified by the enclosing namespace.
func (p *PHPParser) ParseCodeEntities(ctx context.Context, filePath string, content []byte, projectRoot string, opts Options) ([]types.ExtractedCodeEntity, error) {
	tree, err := p.parse(ctx, filePath, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	vctx := visitContext{relPath: projectRelative(projectRoot, filePath)}
	entities := make([]types.ExtractedCodeEntity, 0)
	p.visitDeclarations(tree.RootNode(), content, filePath, vctx, opts, &entities)
	return entities, nil
}

func (p *PHPParser) visitDeclarations(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, entities *[]types.ExtractedCodeEntity) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "namespace_definition":
			// Qualify everything after the namespace declaration with it
			if name := child.ChildByFieldName("name"); name != nil {
				vctx = vctx.push(name.Content(content))
			}
			if body := child.ChildByFieldName("body"); body != nil {
				p.visitDeclarations(body, content, filePath, vctx, opts, entities)
			}
		case "class_declaration":
			p.visitClass(child, content, filePath, vctx, opts, types.EntityClass, entities)
		case "interface_declaration":
			p.visitClass(child, content, filePath, vctx, opts, types.EntityInterface, entities)
		case "trait_declaration":
			p.visitClass(child, content, filePath, vctx, opts, types.EntityTrait, entities)
		case "enum_declaration":
			p.visitClass(child, content, filePath, vctx, opts, types.EntityEnum, entities)
		case "function_definition":
			p.visitFunction(child, content, filePath, vctx, opts, entities)
		}
	}
}

func (p *PHPParser) baseEntity(n *sitter.Node, content []byte, filePath, name string, kind types.EntityKind, vctx visitContext) types.ExtractedCodeEntity {
	entity := types.ExtractedCodeEntity{
		Type:                kind,
		Name:                name,
		FullName:            qualifyName(vctx.relPath, vctx.scope, name),
		StartLine:           startLine(n),
		EndLine:             endLine(n),
		FilePath:            filePath,
		ContainingDirectory: containingDir(filePath),
		Docstring:           precedingComment(n, content),
	}
	if len(vctx.scope) > 0 {
		entity.ParentClass = vctx.scope[len(vctx.scope)-1]
	}
	return entity
}

func (p *PHPParser) visitClass(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, kind types.EntityKind, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}

	entity := p.baseEntity(n, content, filePath, name, kind, vctx)
	// Top-level declarations are reachable from other files
	entity.IsExported = true
	entity.Signature = string(kind) + " " + name

	if base := childOfType(n, "base_clause"); base != nil {
		for i := 0; i < int(base.ChildCount()); i++ {
			child := base.Child(i)
			if child.Type() == "name" || child.Type() == "qualified_name" {
				entity.ExtendedClasses = append(entity.ExtendedClasses, child.Content(content))
			}
		}
	}
	if impl := childOfType(n, "class_interface_clause"); impl != nil {
		for i := 0; i < int(impl.ChildCount()); i++ {
			child := impl.Child(i)
			if child.Type() == "name" || child.Type() == "qualified_name" {
				entity.ImplementedInterfaces = append(entity.ImplementedInterfaces, child.Content(content))
			}
		}
	}
	*entities = append(*entities, entity)

	if body := n.ChildByFieldName("body"); body != nil {
		p.visitClassBody(body, content, filePath, vctx.push(name), opts, entities)
	}
}

func (p *PHPParser) visitClassBody(body *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, entities *[]types.ExtractedCodeEntity) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "method_declaration":
			p.visitMethod(child, content, filePath, vctx, opts, entities)
		case "property_declaration":
			p.visitProperty(child, content, filePath, vctx, entities)
		}
	}
}

// phpVisibility reports whether a member list makes the member public.
// A declaration without a modifier defaults to public.
func phpVisibility(n *sitter.Node, content []byte) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "visibility_modifier" {
			return child.Content(content) == "public"
		}
	}
	return true
}

func (p *PHPParser) visitMethod(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}

	entity := p.baseEntity(n, content, filePath, name, types.EntityMethod, vctx)
	entity.IsExported = phpVisibility(n, content)
	entity.IsStatic = hasChildOfType(n, "static_modifier")
	entity.Parameters = p.parameters(n.ChildByFieldName("parameters"), content)
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		entity.ReturnType = strings.TrimPrefix(strings.TrimSpace(rt.Content(content)), ": ")
	}

	if body := n.ChildByFieldName("body"); body != nil {
		entity.Signature = strings.TrimSpace(string(content[n.StartByte():body.StartByte()]))
		entity.Calls = p.callSites(body, content)
		if opts.IncludeComplexity {
			entity.Complexity = 1 + countBranches(body, content, phpBranchKinds, phpShortCircuitOps, phpNestedScopes)
		}
	} else {
		// Abstract or interface method
		entity.Signature = strings.TrimSuffix(strings.TrimSpace(n.Content(content)), ";")
	}

	*entities = append(*entities, entity)
}

func (p *PHPParser) visitProperty(n *sitter.Node, content []byte, filePath string, vctx visitContext, entities *[]types.ExtractedCodeEntity) {
	for i := 0; i < int(n.ChildCount()); i++ {
		elem := n.Child(i)
		if elem.Type() != "property_element" {
			continue
		}
		varName := childOfType(elem, "variable_name")
		if varName == nil {
			continue
		}
		name := strings.TrimPrefix(varName.Content(content), "$")
		entity := p.baseEntity(n, content, filePath, name, types.EntityProperty, vctx)
		entity.IsExported = phpVisibility(n, content)
		entity.IsStatic = hasChildOfType(n, "static_modifier")
		if t := n.ChildByFieldName("type"); t != nil {
			entity.ReturnType = t.Content(content)
		}
		*entities = append(*entities, entity)
	}
}

func (p *PHPParser) visitFunction(n *sitter.Node, content []byte, filePath string, vctx visitContext, opts Options, entities *[]types.ExtractedCodeEntity) {
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}

	entity := p.baseEntity(n, content, filePath, name, types.EntityFunction, vctx)
	entity.IsExported = true
	entity.Parameters = p.parameters(n.ChildByFieldName("parameters"), content)
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		entity.ReturnType = strings.TrimPrefix(strings.TrimSpace(rt.Content(content)), ": ")
	}

	if body := n.ChildByFieldName("body"); body != nil {
		entity.Signature = strings.TrimSpace(string(content[n.StartByte():body.StartByte()]))
		entity.Calls = p.callSites(body, content)
		if opts.IncludeComplexity {
			entity.Complexity = 1 + countBranches(body, content, phpBranchKinds, phpShortCircuitOps, phpNestedScopes)
		}
	}

	*entities = append(*entities, entity)
}

func (p *PHPParser) callSites(body *sitter.Node, content []byte) []types.CallSite {
	calls := make([]types.CallSite, 0)
	p.collectCalls(body, content, &calls)
	return calls
}

func (p *PHPParser) collectCalls(n *sitter.Node, content []byte, calls *[]types.CallSite) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		kind := child.Type()
		if phpNestedScopes[kind] && kind != "method_declaration" {
			continue
		}
		switch kind {
		case "function_call_expression":
			if fn := child.ChildByFieldName("function"); fn != nil {
				name := fn.Content(content)
				*calls = append(*calls, types.CallSite{
					Name:   name,
					Callee: lastSegment(name, "\\"),
					IsNew:  false,
					Line:   startLine(child),
				})
			}
		case "member_call_expression", "scoped_call_expression", "nullsafe_member_call_expression":
			callee := fieldText(child, "name", content)
			if callee != "" {
				object := fieldText(child, "object", content)
				if object == "" {
					object = fieldText(child, "scope", content)
				}
				name := callee
				if object != "" {
					name = object + "->" + callee
				}
				*calls = append(*calls, types.CallSite{
					Name:   name,
					Callee: callee,
					IsNew:  false,
					Line:   startLine(child),
				})
			}
		case "object_creation_expression":
			target := ""
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				if sub.Type() == "name" || sub.Type() == "qualified_name" {
					target = sub.Content(content)
					break
				}
			}
			if target != "" {
				*calls = append(*calls, types.CallSite{
					Name:   target,
					Callee: lastSegment(target, "\\"),
					IsNew:  true,
					Line:   startLine(child),
				})
			}
		}
		p.collectCalls(child, content, calls)
	}
}

func (p *PHPParser) parameters(n *sitter.Node, content []byte) []types.Parameter {
	if n == nil {
		return nil
	}
	params := make([]types.Parameter, 0)
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "simple_parameter" && child.Type() != "variadic_parameter" &&
			child.Type() != "property_promotion_parameter" {
			continue
		}
		param := types.Parameter{}
		if v := child.ChildByFieldName("name"); v != nil {
			param.Name = strings.TrimPrefix(v.Content(content), "$")
		}
		if t := child.ChildByFieldName("type"); t != nil {
			param.Type = t.Content(content)
		}
		if d := child.ChildByFieldName("default_value"); d != nil {
			param.DefaultValue = d.Content(content)
			param.Optional = true
		}
		if param.Name != "" {
			params = append(params, param)
		}
	}
	return params
}
