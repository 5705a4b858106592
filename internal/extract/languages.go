package extract

import (
	"regexp"

	"github.com/kwatts/codescout/pkg/types"
)

// BuiltinSyntaxes returns the pattern tables for every supported
// language. Each table feeds the same table-driven extractor; adding a
// language means adding data here, not code.
func BuiltinSyntaxes() []*Syntax {
	return []*Syntax{
		goSyntax(),
		javascriptSyntax(),
		typescriptSyntax(),
		pythonSyntax(),
		rustSyntax(),
		javaSyntax(),
		csharpSyntax(),
		cSyntax(),
		rubySyntax(),
		phpSyntax(),
		shellSyntax(),
	}
}

func keywords(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var callRe = regexp.MustCompile(`\b([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)

func goSyntax() *Syntax {
	return &Syntax{
		Name:         "go",
		Extensions:   []string{".go"},
		LineComment:  "//",
		BlockStart:   "/*",
		BlockEnd:     "*/",
		StringDelims: []byte{'"', '\'', '`'},
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*[\(\[]`), Kind: types.KindFunction, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)\b`), Kind: types.KindClass, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)\s+interface\b`), Kind: types.KindInterface, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)\s+struct\b`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`^\s*const\s+([A-Za-z_]\w*)`), Kind: types.KindConstant, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*var\s+([A-Za-z_]\w*)`), Kind: types.KindVariable, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*:=`), Kind: types.KindVariable, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*package\s+([A-Za-z_]\w*)`), Kind: types.KindModule, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*(?:import\s+)?(?:[A-Za-z_]\w*\s+)?"([\w./-]+)"\s*$`), Kind: types.KindImport, NameGroup: 1, Raw: true},
		},
		Refs: []RefPattern{
			{Re: callRe, Kind: types.RefCall, TargetGroup: 1},
			{Re: regexp.MustCompile(`&([A-Z]\w*)\s*\{`), Kind: types.RefInstantiation, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bnew\(([A-Za-z_]\w*)\)`), Kind: types.RefInstantiation, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*(?:import\s+)?(?:[A-Za-z_]\w*\s+)?"([\w./-]+)"\s*$`), Kind: types.RefImport, TargetGroup: 1, Raw: true},
		},
		Keywords: keywords("if", "for", "switch", "select", "go", "defer", "func", "return",
			"make", "len", "cap", "append", "copy", "delete", "panic", "recover", "range",
			"new", "close", "print", "println", "string", "int", "int32", "int64", "uint",
			"byte", "rune", "float32", "float64", "bool", "error", "map", "chan", "interface", "struct"),
	}
}

func javascriptSyntax() *Syntax {
	syn := &Syntax{
		Name:         "javascript",
		Extensions:   []string{".js", ".jsx", ".mjs", ".cjs"},
		LineComment:  "//",
		BlockStart:   "/*",
		BlockEnd:     "*/",
		StringDelims: []byte{'"', '\'', '`'},
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`\bfunction\s+([A-Za-z_$][\w$]*)`), Kind: types.KindFunction, NameGroup: 1},
			{Re: regexp.MustCompile(`\bclass\s+([A-Za-z_$][\w$]*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=`), Kind: types.KindVariable, NameGroup: 1},
			{Re: regexp.MustCompile(`\b(?:const|let)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?(?:\(|[\w$]+\s*=>)`), Kind: types.KindFunction, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s{2,}(?:async\s+)?(?:static\s+)?([A-Za-z_$][\w$]*)\s*\([^)]*\)\s*\{\s*$`), Kind: types.KindFunction, NameGroup: 1, Member: true},
			{Re: regexp.MustCompile(`\bimport\b.*\bfrom\s+['"]([^'"]+)['"]`), Kind: types.KindImport, NameGroup: 1, Raw: true},
			{Re: regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`), Kind: types.KindImport, NameGroup: 1, Raw: true},
		},
		Refs: []RefPattern{
			{Re: callRe, Kind: types.RefCall, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bnew\s+([A-Za-z_$][\w$.]*)`), Kind: types.RefInstantiation, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bclass\s+[\w$]+\s+extends\s+([A-Za-z_$][\w$.]*)`), Kind: types.RefExtends, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bimport\b.*\bfrom\s+['"]([^'"]+)['"]`), Kind: types.RefImport, TargetGroup: 1, Raw: true},
			{Re: regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`), Kind: types.RefImport, TargetGroup: 1, Raw: true},
		},
		Keywords: keywords("if", "for", "while", "switch", "catch", "function", "return",
			"typeof", "instanceof", "await", "async", "new", "delete", "void", "in", "of",
			"constructor", "super", "this", "console", "require"),
	}
	return syn
}

func typescriptSyntax() *Syntax {
	syn := javascriptSyntax()
	syn.Name = "typescript"
	syn.Extensions = []string{".ts", ".tsx", ".mts", ".cts"}
	syn.Decls = append(syn.Decls,
		DeclPattern{Re: regexp.MustCompile(`\binterface\s+([A-Za-z_$][\w$]*)`), Kind: types.KindInterface, NameGroup: 1, EntersClass: true},
		DeclPattern{Re: regexp.MustCompile(`\btype\s+([A-Za-z_$][\w$]*)\s*=`), Kind: types.KindClass, NameGroup: 1},
		DeclPattern{Re: regexp.MustCompile(`\benum\s+([A-Za-z_$][\w$]*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
	)
	syn.Refs = append(syn.Refs,
		RefPattern{Re: regexp.MustCompile(`\bimplements\s+([A-Za-z_$][\w$.]*)`), Kind: types.RefImplements, TargetGroup: 1},
		RefPattern{Re: regexp.MustCompile(`:\s*([A-Z][\w$]*)\s*[;,)=\]]`), Kind: types.RefType, TargetGroup: 1},
	)
	return syn
}

func pythonSyntax() *Syntax {
	return &Syntax{
		Name:         "python",
		Extensions:   []string{".py", ".pyw"},
		LineComment:  "#",
		StringDelims: []byte{'"', '\''},
		IndentScoped: true,
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`), Kind: types.KindFunction, NameGroup: 1, Member: true},
			{Re: regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`^([A-Za-z_]\w*)\s*=[^=]`), Kind: types.KindVariable, NameGroup: 1},
			{Re: regexp.MustCompile(`^([A-Z_][A-Z0-9_]+)\s*=[^=]`), Kind: types.KindConstant, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*import\s+([\w.]+)`), Kind: types.KindImport, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`), Kind: types.KindImport, NameGroup: 1},
		},
		Refs: []RefPattern{
			{Re: callRe, Kind: types.RefCall, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*class\s+\w+\s*\(\s*([A-Za-z_][\w.]*)`), Kind: types.RefExtends, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*import\s+([\w.]+)`), Kind: types.RefImport, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`), Kind: types.RefImport, TargetGroup: 1},
		},
		Keywords: keywords("if", "elif", "for", "while", "def", "class", "return", "print",
			"len", "range", "str", "int", "float", "list", "dict", "set", "tuple", "type",
			"isinstance", "super", "lambda", "with", "except", "raise", "assert", "yield"),
	}
}

func rustSyntax() *Syntax {
	return &Syntax{
		Name:         "rust",
		Extensions:   []string{".rs"},
		LineComment:  "//",
		BlockStart:   "/*",
		BlockEnd:     "*/",
		StringDelims: []byte{'"'},
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`\bfn\s+([A-Za-z_]\w*)`), Kind: types.KindFunction, NameGroup: 1, Member: true},
			{Re: regexp.MustCompile(`\bstruct\s+([A-Za-z_]\w*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\benum\s+([A-Za-z_]\w*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\btrait\s+([A-Za-z_]\w*)`), Kind: types.KindInterface, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`^\s*impl(?:<[^>]*>)?\s+([A-Za-z_]\w*)[\s<{]`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\blet\s+(?:mut\s+)?([A-Za-z_]\w*)`), Kind: types.KindVariable, NameGroup: 1},
			{Re: regexp.MustCompile(`\bconst\s+([A-Za-z_]\w*)`), Kind: types.KindConstant, NameGroup: 1},
			{Re: regexp.MustCompile(`\bstatic\s+([A-Za-z_]\w*)`), Kind: types.KindConstant, NameGroup: 1},
			{Re: regexp.MustCompile(`\bmod\s+([A-Za-z_]\w*)`), Kind: types.KindModule, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*use\s+([\w:]+)`), Kind: types.KindImport, NameGroup: 1},
		},
		Refs: []RefPattern{
			{Re: callRe, Kind: types.RefCall, TargetGroup: 1},
			{Re: regexp.MustCompile(`\b([A-Z]\w*)::new\b`), Kind: types.RefInstantiation, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bimpl(?:<[^>]*>)?\s+([A-Za-z_]\w*)\s+for\b`), Kind: types.RefImplements, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*use\s+([\w:]+)`), Kind: types.RefImport, TargetGroup: 1},
		},
		Keywords: keywords("if", "for", "while", "match", "fn", "return", "let", "loop",
			"vec", "println", "print", "panic", "format", "write", "writeln", "assert",
			"assert_eq", "Some", "None", "Ok", "Err", "Box", "Vec", "String"),
	}
}

func javaSyntax() *Syntax {
	return &Syntax{
		Name:         "java",
		Extensions:   []string{".java"},
		LineComment:  "//",
		BlockStart:   "/*",
		BlockEnd:     "*/",
		StringDelims: []byte{'"', '\''},
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`\bclass\s+([A-Za-z_]\w*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\binterface\s+([A-Za-z_]\w*)`), Kind: types.KindInterface, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\benum\s+([A-Za-z_]\w*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\b(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?[\w<>\[\],.\s]+?\s([A-Za-z_]\w*)\s*\(`), Kind: types.KindFunction, NameGroup: 1, Member: true},
			{Re: regexp.MustCompile(`\bstatic\s+final\s+[\w<>\[\]]+\s+([A-Z_][A-Z0-9_]*)`), Kind: types.KindConstant, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.]+)\s*;`), Kind: types.KindImport, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;`), Kind: types.KindModule, NameGroup: 1},
		},
		Refs: []RefPattern{
			{Re: callRe, Kind: types.RefCall, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bnew\s+([A-Za-z_][\w.]*)`), Kind: types.RefInstantiation, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bextends\s+([A-Za-z_][\w.]*)`), Kind: types.RefExtends, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bimplements\s+([A-Za-z_][\w.]*)`), Kind: types.RefImplements, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.]+)\s*;`), Kind: types.RefImport, TargetGroup: 1},
		},
		Keywords: keywords("if", "for", "while", "switch", "catch", "return", "new",
			"super", "this", "assert", "synchronized", "throw"),
	}
}

func csharpSyntax() *Syntax {
	syn := javaSyntax()
	syn.Name = "csharp"
	syn.Extensions = []string{".cs"}
	syn.Decls = append(syn.Decls,
		DeclPattern{Re: regexp.MustCompile(`\bstruct\s+([A-Za-z_]\w*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
		DeclPattern{Re: regexp.MustCompile(`\bnamespace\s+([\w.]+)`), Kind: types.KindModule, NameGroup: 1},
		DeclPattern{Re: regexp.MustCompile(`^\s*using\s+([\w.]+)\s*;`), Kind: types.KindImport, NameGroup: 1},
	)
	syn.Refs = append(syn.Refs,
		RefPattern{Re: regexp.MustCompile(`\bclass\s+\w+\s*:\s*([A-Za-z_][\w.]*)`), Kind: types.RefExtends, TargetGroup: 1},
		RefPattern{Re: regexp.MustCompile(`^\s*using\s+([\w.]+)\s*;`), Kind: types.RefImport, TargetGroup: 1},
	)
	return syn
}

func cSyntax() *Syntax {
	return &Syntax{
		Name:         "c",
		Extensions:   []string{".c", ".h", ".cc", ".cpp", ".hpp", ".cxx"},
		LineComment:  "//",
		BlockStart:   "/*",
		BlockEnd:     "*/",
		StringDelims: []byte{'"', '\''},
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`^[A-Za-z_][\w\s\*&:<>,]*?[\s\*]([A-Za-z_]\w*)\s*\([^;]*$`), Kind: types.KindFunction, NameGroup: 1},
			{Re: regexp.MustCompile(`\b(?:struct|class|union)\s+([A-Za-z_]\w*)\s*[{\s]*$`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\benum\s+([A-Za-z_]\w*)`), Kind: types.KindClass, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*#define\s+([A-Za-z_]\w*)`), Kind: types.KindConstant, NameGroup: 1},
			{Re: regexp.MustCompile(`\btypedef\b.*?\b([A-Za-z_]\w*)\s*;`), Kind: types.KindClass, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*#include\s+[<"]([\w./-]+)[>"]`), Kind: types.KindImport, NameGroup: 1, Raw: true},
		},
		Refs: []RefPattern{
			{Re: callRe, Kind: types.RefCall, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bnew\s+([A-Za-z_]\w*)`), Kind: types.RefInstantiation, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*#include\s+[<"]([\w./-]+)[>"]`), Kind: types.RefImport, TargetGroup: 1, Raw: true},
		},
		Keywords: keywords("if", "for", "while", "switch", "return", "sizeof", "defined",
			"printf", "fprintf", "sprintf", "malloc", "free", "memcpy", "memset", "assert"),
	}
}

func rubySyntax() *Syntax {
	return &Syntax{
		Name:         "ruby",
		Extensions:   []string{".rb", ".rake"},
		LineComment:  "#",
		StringDelims: []byte{'"', '\''},
		IndentScoped: true,
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`^\s*def\s+(?:self\.)?([A-Za-z_]\w*[?!]?)`), Kind: types.KindFunction, NameGroup: 1, Member: true},
			{Re: regexp.MustCompile(`^\s*class\s+([A-Z]\w*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`^\s*module\s+([A-Z]\w*)`), Kind: types.KindModule, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`^([A-Z_][A-Z0-9_]+)\s*=[^=]`), Kind: types.KindConstant, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*([a-z_]\w*)\s*=[^=~]`), Kind: types.KindVariable, NameGroup: 1},
			{Re: regexp.MustCompile(`\brequire(?:_relative)?\s+['"]([\w./-]+)['"]`), Kind: types.KindImport, NameGroup: 1, Raw: true},
		},
		Refs: []RefPattern{
			{Re: callRe, Kind: types.RefCall, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*class\s+\w+\s*<\s*([A-Z][\w:]*)`), Kind: types.RefExtends, TargetGroup: 1},
			{Re: regexp.MustCompile(`^\s*include\s+([A-Z][\w:]*)`), Kind: types.RefImplements, TargetGroup: 1},
			{Re: regexp.MustCompile(`\b([A-Z]\w*)\.new\b`), Kind: types.RefInstantiation, TargetGroup: 1},
			{Re: regexp.MustCompile(`\brequire(?:_relative)?\s+['"]([\w./-]+)['"]`), Kind: types.RefImport, TargetGroup: 1, Raw: true},
		},
		Keywords: keywords("if", "elsif", "unless", "while", "until", "def", "class",
			"puts", "print", "raise", "require", "lambda", "proc", "yield", "attr_accessor",
			"attr_reader", "attr_writer"),
	}
}

func phpSyntax() *Syntax {
	return &Syntax{
		Name:         "php",
		Extensions:   []string{".php"},
		LineComment:  "//",
		BlockStart:   "/*",
		BlockEnd:     "*/",
		StringDelims: []byte{'"', '\''},
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`\bfunction\s+([A-Za-z_]\w*)`), Kind: types.KindFunction, NameGroup: 1, Member: true},
			{Re: regexp.MustCompile(`\bclass\s+([A-Za-z_]\w*)`), Kind: types.KindClass, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\binterface\s+([A-Za-z_]\w*)`), Kind: types.KindInterface, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\btrait\s+([A-Za-z_]\w*)`), Kind: types.KindInterface, NameGroup: 1, EntersClass: true},
			{Re: regexp.MustCompile(`\$([A-Za-z_]\w*)\s*=[^=]`), Kind: types.KindVariable, NameGroup: 1},
			{Re: regexp.MustCompile(`\bconst\s+([A-Z_][A-Z0-9_]*)`), Kind: types.KindConstant, NameGroup: 1},
			{Re: regexp.MustCompile(`\b(?:require|include)(?:_once)?\s*\(?\s*['"]([\w./-]+)['"]`), Kind: types.KindImport, NameGroup: 1, Raw: true},
		},
		Refs: []RefPattern{
			{Re: callRe, Kind: types.RefCall, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bnew\s+([A-Za-z_\\][\w\\]*)`), Kind: types.RefInstantiation, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bextends\s+([A-Za-z_\\][\w\\]*)`), Kind: types.RefExtends, TargetGroup: 1},
			{Re: regexp.MustCompile(`\bimplements\s+([A-Za-z_\\][\w\\]*)`), Kind: types.RefImplements, TargetGroup: 1},
			{Re: regexp.MustCompile(`\buse\s+([A-Za-z_\\][\w\\]*)`), Kind: types.RefImport, TargetGroup: 1},
		},
		Keywords: keywords("if", "for", "foreach", "while", "switch", "catch", "function",
			"return", "echo", "print", "isset", "empty", "unset", "array", "list", "new"),
	}
}

func shellSyntax() *Syntax {
	return &Syntax{
		Name:         "shell",
		Extensions:   []string{".sh", ".bash", ".zsh"},
		LineComment:  "#",
		StringDelims: []byte{'"', '\''},
		Decls: []DeclPattern{
			{Re: regexp.MustCompile(`^\s*(?:function\s+)?([A-Za-z_]\w*)\s*\(\)\s*\{?`), Kind: types.KindFunction, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*function\s+([A-Za-z_]\w*)`), Kind: types.KindFunction, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*(?:export\s+)?([A-Za-z_][A-Z0-9a-z_]*)=`), Kind: types.KindVariable, NameGroup: 1},
			{Re: regexp.MustCompile(`^\s*(?:source|\.)\s+([\w./-]+)`), Kind: types.KindImport, NameGroup: 1},
		},
		Refs: []RefPattern{
			{Re: regexp.MustCompile(`^\s*(?:source|\.)\s+([\w./-]+)`), Kind: types.RefImport, TargetGroup: 1},
			{Re: regexp.MustCompile(`\$\(([A-Za-z_]\w*)\b`), Kind: types.RefCall, TargetGroup: 1},
		},
		Keywords: keywords("if", "then", "else", "elif", "fi", "for", "while", "do", "done",
			"case", "esac", "echo", "exit", "local", "readonly", "shift", "test"),
	}
}
