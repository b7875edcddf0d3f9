package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

func TestPHPImports(t *testing.T) {
	src := []byte(`<?php
use App\Models\User;
require_once 'bootstrap.php';
`)

	p := NewPHPParser()
	imports, err := p.ParseImports(context.Background(), "src/index.php", src)
	require.NoError(t, err)
	require.Len(t, imports, 2)

	user := findImport(t, imports, `App\Models\User`)
	assert.Equal(t, types.ImportModule, user.Type)
	assert.Equal(t, []string{"User"}, user.ImportedSymbols)

	boot := findImport(t, imports, "bootstrap.php")
	assert.Equal(t, types.ImportFile, boot.Type)
}

func TestPHPClassMembers(t *testing.T) {
	src := []byte(`<?php
namespace App;

class OrderService extends BaseService implements Billable
{
    private $repo;

    public function place($order, $notify = true)
    {
        if ($order && $notify) {
            $this->repo->save($order);
        }
        return new Receipt($order);
    }

    private function audit() {}
}
`)

	p := NewPHPParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/OrderService.php", src, "", DefaultOptions())
	require.NoError(t, err)

	class := findEntity(t, entities, "OrderService")
	assert.Equal(t, types.EntityClass, class.Type)
	assert.Equal(t, "src/OrderService.php::App.OrderService", class.FullName)
	assert.True(t, class.IsExported)
	assert.Equal(t, []string{"BaseService"}, class.ExtendedClasses)
	assert.Equal(t, []string{"Billable"}, class.ImplementedInterfaces)

	repo := findEntity(t, entities, "repo")
	assert.Equal(t, types.EntityProperty, repo.Type)
	assert.False(t, repo.IsExported)

	place := findEntity(t, entities, "place")
	assert.Equal(t, types.EntityMethod, place.Type)
	assert.Equal(t, "OrderService", place.ParentClass)
	assert.True(t, place.IsExported)
	require.Len(t, place.Parameters, 2)
	assert.Equal(t, "order", place.Parameters[0].Name)
	assert.True(t, place.Parameters[1].Optional)

	// 1 base + if + &&
	assert.Equal(t, 3, place.Complexity)

	var callees []string
	var sawNew bool
	for _, c := range place.Calls {
		callees = append(callees, c.Callee)
		if c.IsNew {
			sawNew = true
			assert.Equal(t, "Receipt", c.Callee)
		}
	}
	assert.Contains(t, callees, "save")
	assert.True(t, sawNew)

	audit := findEntity(t, entities, "audit")
	assert.False(t, audit.IsExported)
}

func TestPHPInterfaceTraitEnum(t *testing.T) {
	src := []byte(`<?php
interface Billable
{
    public function bill(): void;
}

trait Timestamps
{
    public function touch() {}
}

enum Status
{
    case Open;
    case Closed;
}
`)

	p := NewPHPParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/types.php", src, "", DefaultOptions())
	require.NoError(t, err)

	billable := findEntity(t, entities, "Billable")
	assert.Equal(t, types.EntityInterface, billable.Type)

	bill := findEntity(t, entities, "bill")
	assert.Equal(t, "Billable", bill.ParentClass)
	assert.Equal(t, "void", bill.ReturnType)

	timestamps := findEntity(t, entities, "Timestamps")
	assert.Equal(t, types.EntityTrait, timestamps.Type)

	status := findEntity(t, entities, "Status")
	assert.Equal(t, types.EntityEnum, status.Type)
}

func TestPHPTopLevelFunction(t *testing.T) {
	src := []byte(`<?php
function format_total($amount)
{
    return number_format($amount, 2);
}
`)

	p := NewPHPParser()
	entities, err := p.ParseCodeEntities(context.Background(), "src/helpers.php", src, "", DefaultOptions())
	require.NoError(t, err)

	fn := findEntity(t, entities, "format_total")
	assert.Equal(t, types.EntityFunction, fn.Type)
	assert.True(t, fn.IsExported)
	require.Len(t, fn.Calls, 1)
	assert.Equal(t, "number_format", fn.Calls[0].Name)
}
