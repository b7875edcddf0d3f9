package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

func findEntity(t *testing.T, entities []types.ExtractedCodeEntity, name string) types.ExtractedCodeEntity {
	t.Helper()
	for _, e := range entities {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entity %q not found in %d extracted entities", name, len(entities))
	return types.ExtractedCodeEntity{}
}

func findImport(t *testing.T, imports []types.ExtractedImport, target string) types.ExtractedImport {
	t.Helper()
	for _, imp := range imports {
		if imp.TargetPath == target {
			return imp
		}
	}
	t.Fatalf("import %q not found in %d extracted imports", target, len(imports))
	return types.ExtractedImport{}
}

func TestTypeScriptClassWithMethodCall(t *testing.T) {
	src := []byte(`export class Foo { bar() { baz(); } }`)

	p := NewTypeScriptParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/foo.ts", src, "", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, entities, 2)

	class := findEntity(t, entities, "Foo")
	assert.Equal(t, types.EntityClass, class.Type)
	assert.Equal(t, "src/foo.ts::Foo", class.FullName)
	assert.True(t, class.IsExported)
	assert.Empty(t, class.ParentClass)

	method := findEntity(t, entities, "bar")
	assert.Equal(t, types.EntityMethod, method.Type)
	assert.Equal(t, "src/foo.ts::Foo.bar", method.FullName)
	assert.Equal(t, "Foo", method.ParentClass)
	assert.True(t, method.IsExported)
	require.Len(t, method.Calls, 1)
	assert.Equal(t, "baz", method.Calls[0].Name)
	assert.Equal(t, "baz", method.Calls[0].Callee)
	assert.False(t, method.Calls[0].IsNew)
}

func TestTypeScriptImports(t *testing.T) {
	src := []byte(`import { join } from "path";
import type { Config } from "./config";
import * as os from "os";
export { helper } from "./util";
const fs = require("fs");

export async function load(name: string) {
	const mod = await import("./plugins");
	return join(name);
}
`)

	p := NewTypeScriptParser()
	imports, err := p.ParseImports(context.Background(), "src/load.ts", src)
	require.NoError(t, err)
	require.Len(t, imports, 6)

	path := findImport(t, imports, "path")
	assert.Equal(t, types.ImportModule, path.Type)
	assert.Contains(t, path.ImportedSymbols, "join")
	assert.False(t, path.IsTypeOnlyImport)

	config := findImport(t, imports, "./config")
	assert.Equal(t, types.ImportFile, config.Type)
	assert.True(t, config.IsTypeOnlyImport)

	osImp := findImport(t, imports, "os")
	assert.Contains(t, osImp.ImportedSymbols, "* as os")

	util := findImport(t, imports, "./util")
	assert.Equal(t, types.ImportFile, util.Type)
	assert.Contains(t, util.ImportedSymbols, "helper")

	fsImp := findImport(t, imports, "fs")
	assert.Equal(t, types.ImportModule, fsImp.Type)
	assert.False(t, fsImp.IsDynamicImport)

	plugins := findImport(t, imports, "./plugins")
	assert.Equal(t, types.ImportFile, plugins.Type)
	assert.True(t, plugins.IsDynamicImport)
}

func TestTypeScriptFunctionDetails(t *testing.T) {
	src := []byte(`export async function pick(a: number, b?: number): number {
	if (a > 0 && b !== undefined) {
		return a;
	}
	return b;
}
`)

	p := NewTypeScriptParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/pick.ts", src, "", DefaultOptions())
	require.NoError(t, err)

	fn := findEntity(t, entities, "pick")
	assert.Equal(t, types.EntityFunction, fn.Type)
	assert.True(t, fn.IsExported)
	assert.True(t, fn.IsAsync)
	assert.Equal(t, "number", fn.ReturnType)

	require.Len(t, fn.Parameters, 2)
	assert.Equal(t, "a", fn.Parameters[0].Name)
	assert.Equal(t, "number", fn.Parameters[0].Type)
	assert.False(t, fn.Parameters[0].Optional)
	assert.Equal(t, "b", fn.Parameters[1].Name)
	assert.True(t, fn.Parameters[1].Optional)

	// 1 base + if + &&
	assert.Equal(t, 3, fn.Complexity)
}

func TestTypeScriptHeritageAndTypes(t *testing.T) {
	src := []byte(`interface Reader {
	read(): string;
}

export class File extends Base implements Reader {
	read() { return ""; }
}

export type Mode = "r" | "w";

export enum Level {
	Low,
	High,
}
`)

	p := NewTypeScriptParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/io.ts", src, "", DefaultOptions())
	require.NoError(t, err)

	reader := findEntity(t, entities, "Reader")
	assert.Equal(t, types.EntityInterface, reader.Type)
	assert.False(t, reader.IsExported)

	file := findEntity(t, entities, "File")
	assert.Equal(t, []string{"Base"}, file.ExtendedClasses)
	assert.Equal(t, []string{"Reader"}, file.ImplementedInterfaces)

	mode := findEntity(t, entities, "Mode")
	assert.Equal(t, types.EntityTypeAlias, mode.Type)
	assert.True(t, mode.IsExported)

	level := findEntity(t, entities, "Level")
	assert.Equal(t, types.EntityEnum, level.Type)
}

func TestTypeScriptNestedScopeCallsNotAttributedToParent(t *testing.T) {
	src := []byte(`function outer() {
	direct();
	function inner() {
		nested();
	}
}
`)

	p := NewTypeScriptParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/nested.ts", src, "", DefaultOptions())
	require.NoError(t, err)

	outer := findEntity(t, entities, "outer")
	require.Len(t, outer.Calls, 1)
	assert.Equal(t, "direct", outer.Calls[0].Name)
}

func TestTypeScriptConstructorCall(t *testing.T) {
	src := []byte(`function build() {
	return new lib.Widget();
}
`)

	p := NewTypeScriptParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/build.ts", src, "", DefaultOptions())
	require.NoError(t, err)

	fn := findEntity(t, entities, "build")
	require.Len(t, fn.Calls, 1)
	assert.Equal(t, "lib.Widget", fn.Calls[0].Name)
	assert.Equal(t, "Widget", fn.Calls[0].Callee)
	assert.True(t, fn.Calls[0].IsNew)
}

func TestJavaScriptGrammarSelection(t *testing.T) {
	src := []byte(`export function greet(name) {
	return "hi " + name;
}
`)

	p := NewTypeScriptParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/greet.js", src, "", DefaultOptions())
	require.NoError(t, err)

	fn := findEntity(t, entities, "greet")
	assert.True(t, fn.IsExported)
	require.Len(t, fn.Parameters, 1)
	assert.Equal(t, "name", fn.Parameters[0].Name)
}
