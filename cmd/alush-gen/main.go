// Command alush-gen generates eval/builtins_table.go from the
// declarative *Decls variables in eval/registry.go, the same
// read-Go-types-emit-Go-code shape as decorator/decorator.go in the
// teacher repo, repurposed so the built-in name table lives in exactly
// one hand-maintained place (registry.go) instead of two.
package main

import (
	"flag"
	"fmt"
	"go/types"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/go/packages"
)

var declsRegexp = regexp.MustCompile(`^(.*)Decls$`)

func main() {
	in := flag.String("in", "", "package directory to scan for *Decls variables")
	out := flag.String("out", "", "file to write")
	pkg := flag.String("pkg", "", "package name of out")

	flag.Parse()

	if *in == "" || *out == "" || *pkg == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := &packages.Config{Mode: packages.NeedTypes | packages.NeedName}
	pkgs, err := packages.Load(cfg, *in)
	if err != nil {
		log.Panic(err)
	}

	f := jen.NewFile(*pkg)
	f.PackageComment("Code generated by alush-gen from registry.go. DO NOT EDIT.")

	for _, p := range pkgs {
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			match := declsRegexp.FindStringSubmatch(name)
			if match == nil {
				continue
			}
			obj, ok := scope.Lookup(name).(*types.Var)
			if !ok {
				continue
			}
			sliceType, ok := obj.Type().Underlying().(*types.Slice)
			if !ok {
				continue
			}
			elemName := sliceType.Elem().(*types.Named).Obj().Name()
			exported := strings.ToUpper(match[1][0:1]) + match[1][1:]

			f.Comment(fmt.Sprintf("%sInfo names a %s's root-frame binding.", exported, strings.TrimSuffix(elemName, "Decl")))
			f.Type().Id(exported + "Info").Op("=").Id(elemName)
			f.Var().Id(exported + "s").Op("=").Id(name)
		}
	}

	if err := f.Save(*out); err != nil {
		log.Panic(err)
	}
}
