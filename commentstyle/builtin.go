package commentstyle

// Built-in styles. Styles that commonly appear in executable scripts allow a
// shebang; XML-family styles keep declarations first.
var (
	slash       = LineStyle("slash", "//").WithAltBlock("/*", "*/", " *")
	slashScript = LineStyle("slash", "//", ConstructShebang).WithAltBlock("/*", "*/", " *")
	hash        = LineStyle("hash", "#", ConstructShebang, ConstructEncoding)
	dash        = LineStyle("dash", "--", ConstructShebang)
	semicolon   = LineStyle("semicolon", ";")
	lisp        = LineStyle("lisp", ";;", ConstructShebang)
	percent     = LineStyle("percent", "%")
	apostrophe  = LineStyle("apostrophe", "'")
	bang        = LineStyle("bang", "!")
	vim         = LineStyle("vim", `"`)
	rst         = LineStyle("rst", "..")
	batch       = LineStyle("batch", "REM")
	php         = LineStyle("php", "//", ConstructShebang, ConstructPHP).WithAltBlock("/*", "*/", " *")
	cBlock      = BlockStyle("c-block", "/*", "*/", " *")
	markup      = BlockStyle("markup", "<!--", "-->", "", ConstructXML, ConstructDoctype)
	ml          = BlockStyle("ml", "(*", "*)", "")
	goTemplate  = BlockStyle("go-template", "{{/*", "*/}}", "")
	jinja       = BlockStyle("jinja", "{#", "#}", "")
	handlebars  = BlockStyle("handlebars", "{{!--", "--}}", "")
	erb         = BlockStyle("erb", "<%#", "%>", "")
	jsp         = BlockStyle("jsp", "<%--", "--%>", "")
	curlyDash   = BlockStyle("curly-dash", "{-", "-}", "")
)

var builtinTable = []struct {
	style Style
	keys  []string
}{
	{slash, []string{
		"go", "c", "h", "cc", "cpp", "cxx", "c++", "hh", "hpp", "hxx", "h++",
		"cs", "java", "scala", "sc", "rs", "proto", "zig", "m", "mm", "d",
		"fs", "fsi", "fsx", "jsonc", "json5", "scss", "sass", "less", "sol",
		"thrift", "hx", "glsl", "hlsl", "vert", "frag", "cu", "cuh", "ino",
		"adoc", "asciidoc", "v", "sv", "svh", "jsx", "tsx", "Jenkinsfile",
	}},
	{slashScript, []string{
		"js", "mjs", "cjs", "ts", "mts", "cts", "swift", "kt", "kts",
		"groovy", "gradle", "dart",
	}},
	{hash, []string{
		"py", "pyi", "pyw", "pyx", "pxd", "sh", "bash", "zsh", "fish", "ksh",
		"rb", "rake", "gemspec", "pl", "pm", "r", "yaml", "yml", "toml",
		"tf", "tfvars", "hcl", "nomad", "cmake", "mk", "mak", "nix", "ps1",
		"psm1", "psd1", "conf", "properties", "ex", "exs", "cr", "nim", "jl",
		"tcl", "awk", "sed", "bzl", "star", "bazel", "gd", "coffee", "pp",
		"graphql", "gql", "dockerfile", "containerfile", "gitignore",
		"gitattributes", "dockerignore", "editorconfig", "env", "npmrc",
		"Makefile", "GNUmakefile", "makefile", "Dockerfile", "Containerfile",
		"Vagrantfile", "Gemfile", "Rakefile", "Brewfile", "Podfile",
		"Procfile", "BUILD", "WORKSPACE", "CMakeLists.txt", "Justfile",
		"justfile", "Tiltfile", "CODEOWNERS",
	}},
	{dash, []string{
		"sql", "lua", "hs", "elm", "ada", "adb", "ads", "vhd", "vhdl",
		"purs", "cql", "pgsql", "psql",
	}},
	{semicolon, []string{"asm", "ini"}},
	{lisp, []string{"lisp", "lsp", "cl", "el", "clj", "cljs", "cljc", "edn", "scm", "ss", "rkt"}},
	{percent, []string{"tex", "sty", "ltx", "bib", "erl", "hrl"}},
	{apostrophe, []string{"vb", "vbs", "bas"}},
	{bang, []string{"f90", "f95", "f03", "f08"}},
	{vim, []string{"vim", "vimrc"}},
	{rst, []string{"rst"}},
	{batch, []string{"bat", "cmd"}},
	{php, []string{"php", "phtml"}},
	{cBlock, []string{"css", "pcss"}},
	{markup, []string{
		"html", "htm", "xhtml", "xml", "xsd", "xsl", "xslt", "svg", "vue",
		"svelte", "md", "markdown", "plist", "csproj", "vbproj", "fsproj",
		"props", "targets", "wsdl", "xaml",
	}},
	{ml, []string{"ml", "mli", "sml", "pas"}},
	{goTemplate, []string{"tmpl", "gotmpl", "gohtml", "tpl"}},
	{jinja, []string{"j2", "jinja", "jinja2", "twig", "njk"}},
	{handlebars, []string{"hbs", "handlebars"}},
	{erb, []string{"erb"}},
	{jsp, []string{"jsp"}},
	{curlyDash, []string{"agda", "lagda", "idr"}},
}

// builtinInterpreters maps shebang interpreters to style keys.
var builtinInterpreters = map[string]string{
	"sh":      "sh",
	"bash":    "sh",
	"zsh":     "sh",
	"ksh":     "sh",
	"dash":    "sh",
	"fish":    "sh",
	"python":  "py",
	"pypy":    "py",
	"ruby":    "rb",
	"perl":    "pl",
	"node":    "js",
	"bun":     "js",
	"deno":    "ts",
	"lua":     "lua",
	"luajit":  "lua",
	"tclsh":   "tcl",
	"wish":    "tcl",
	"awk":     "awk",
	"gawk":    "awk",
	"Rscript": "r",
	"php":     "php",
	"pwsh":    "ps1",
	"make":    "mk",
	"julia":   "jl",
	"elixir":  "exs",
	"swift":   "swift",
	"groovy":  "groovy",
	"kotlin":  "kts",
	"dart":    "dart",
	"runghc":  "hs",
	"bb":      "clj",
	"sbcl":    "lisp",
}

func builtinStyles() map[string]Style {
	out := make(map[string]Style)

	for _, entry := range builtinTable {
		for _, key := range entry.keys {
			out[key] = entry.style
		}
	}

	return out
}
