package codegen_test

import (
	"fmt"

	"github.com/tangpei1215/fusion/pkg/abc"
	"github.com/tangpei1215/fusion/pkg/codegen"
)

// Build a class with one method and inspect the finished file.
func Example() {
	g := codegen.NewGenerator(nil)

	g.BeginClass(abc.QN("Greeter"), abc.QName{}, nil)
	g.BeginMethod(codegen.MethodSpec{
		Name:   abc.QN("greet"),
		Params: []codegen.Param{{Type: abc.QN("String"), Name: "who"}},
	})
	g.CallFunctionConstArgs(abc.QN("trace"), "hello")
	g.ReturnVoid()
	g.EndMethod()
	g.EndClass()
	g.Finish()

	f := g.File()
	inst := f.Instances.At(0)
	fmt.Println(inst.Name, "extends", inst.SuperName)
	for _, t := range inst.Traits {
		fmt.Println(" ", t.Kind, t.Name)
	}

	// Output:
	// Greeter extends Object
	//   method greet
}
