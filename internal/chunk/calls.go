package chunk

// Call extraction walks call-expression nodes and records every call
// site faithfully. Filtering of built-ins and unresolvable calls is
// graph-builder policy, not extraction policy.

// ReceiverCallResult marks a chained call whose object is itself a call.
const ReceiverCallResult = "<call_result>"

// CalleeAnonymous marks IIFE and immediately-invoked arrow expressions.
const CalleeAnonymous = "<anonymous>"

// callLanguages lists the languages the extractor understands.
var callLanguages = map[string]bool{
	"javascript": true, "jsx": true, "typescript": true, "tsx": true,
	"python": true, "go": true, "java": true,
}

// SupportsCallExtraction reports whether calls can be extracted for a
// language.
func SupportsCallExtraction(language string) bool {
	return callLanguages[language]
}

// ExtractCalls returns every call site in the tree in source order.
func ExtractCalls(tree *Tree) []CallSite {
	if tree == nil || tree.Root == nil || !SupportsCallExtraction(tree.Language) {
		return nil
	}

	var calls []CallSite
	tree.Root.Walk(func(n *Node) bool {
		if site, ok := callSiteFromNode(n, tree.Source, tree.Language); ok {
			calls = append(calls, site)
		}
		return true
	})
	return calls
}

func callSiteFromNode(n *Node, source []byte, language string) (CallSite, bool) {
	switch language {
	case "javascript", "jsx", "typescript", "tsx":
		if n.Type == "call_expression" {
			return jsCallSite(n, source)
		}
	case "python":
		if n.Type == "call" {
			return pythonCallSite(n, source)
		}
	case "go":
		if n.Type == "call_expression" {
			return goCallSite(n, source)
		}
	case "java":
		if n.Type == "method_invocation" {
			return javaCallSite(n, source)
		}
	}
	return CallSite{}, false
}

func jsCallSite(n *Node, source []byte) (CallSite, bool) {
	if len(n.Children) == 0 {
		return CallSite{}, false
	}
	fn := n.Children[0]
	line := n.StartLine()

	switch fn.Type {
	case "identifier":
		return CallSite{Callee: fn.Text(source), Line: line}, true

	case "import":
		// dynamic import(), handled by the facts extractor
		return CallSite{}, false

	case "member_expression":
		prop := fn.ChildOfType("property_identifier")
		if prop == nil || len(fn.Children) == 0 {
			return CallSite{}, false
		}
		object := fn.Children[0]
		site := CallSite{
			Callee:   prop.Text(source),
			IsMethod: true,
			Line:     line,
		}
		switch object.Type {
		case "this":
			site.Receiver = "this"
		case "call_expression":
			site.Receiver = ReceiverCallResult
			site.IsDynamic = true
		default:
			site.Receiver = object.Text(source)
		}
		return site, true

	case "parenthesized_expression", "arrow_function", "function", "function_expression":
		return CallSite{Callee: CalleeAnonymous, IsDynamic: true, Line: line}, true
	}

	return CallSite{}, false
}

func pythonCallSite(n *Node, source []byte) (CallSite, bool) {
	if len(n.Children) == 0 {
		return CallSite{}, false
	}
	fn := n.Children[0]
	line := n.StartLine()

	switch fn.Type {
	case "identifier":
		return CallSite{Callee: fn.Text(source), Line: line}, true

	case "attribute":
		attr := fn.ChildOfType("identifier")
		// attribute children: object, ".", identifier; the trailing
		// identifier is the called name
		var callee *Node
		for _, child := range fn.Children {
			if child.Type == "identifier" {
				callee = child
			}
		}
		if callee == nil || callee == fn.Children[0] {
			callee = attr
		}
		if callee == nil || len(fn.Children) == 0 {
			return CallSite{}, false
		}
		object := fn.Children[0]
		site := CallSite{
			Callee:   callee.Text(source),
			IsMethod: true,
			Line:     line,
		}
		switch {
		case object.Type == "identifier" && (object.Text(source) == "self" || object.Text(source) == "cls"):
			site.Receiver = "self"
		case object.Type == "call":
			site.Receiver = ReceiverCallResult
			site.IsDynamic = true
		default:
			site.Receiver = object.Text(source)
		}
		return site, true

	case "lambda", "parenthesized_expression":
		return CallSite{Callee: CalleeAnonymous, IsDynamic: true, Line: line}, true
	}

	return CallSite{}, false
}

func goCallSite(n *Node, source []byte) (CallSite, bool) {
	if len(n.Children) == 0 {
		return CallSite{}, false
	}
	fn := n.Children[0]
	line := n.StartLine()

	switch fn.Type {
	case "identifier":
		return CallSite{Callee: fn.Text(source), Line: line}, true

	case "selector_expression":
		field := fn.ChildOfType("field_identifier")
		if field == nil || len(fn.Children) == 0 {
			return CallSite{}, false
		}
		object := fn.Children[0]
		site := CallSite{
			Callee:   field.Text(source),
			IsMethod: true,
			Line:     line,
		}
		if object.Type == "call_expression" {
			site.Receiver = ReceiverCallResult
			site.IsDynamic = true
		} else {
			site.Receiver = object.Text(source)
		}
		return site, true

	case "func_literal", "parenthesized_expression":
		return CallSite{Callee: CalleeAnonymous, IsDynamic: true, Line: line}, true
	}

	return CallSite{}, false
}

func javaCallSite(n *Node, source []byte) (CallSite, bool) {
	line := n.StartLine()

	// method_invocation children: [object, ".",] name, argument_list
	var identifiers []*Node
	var object *Node
	for _, child := range n.Children {
		switch child.Type {
		case "identifier":
			identifiers = append(identifiers, child)
		case "field_access", "method_invocation", "this":
			object = child
		case "argument_list":
		}
	}
	if len(identifiers) == 0 {
		return CallSite{}, false
	}

	callee := identifiers[len(identifiers)-1]
	site := CallSite{Callee: callee.Text(source), Line: line}

	switch {
	case object != nil && object.Type == "this":
		site.Receiver = "this"
		site.IsMethod = true
	case object != nil && object.Type == "method_invocation":
		site.Receiver = ReceiverCallResult
		site.IsMethod = true
		site.IsDynamic = true
	case object != nil:
		site.Receiver = object.Text(source)
		site.IsMethod = true
	case len(identifiers) > 1:
		site.Receiver = identifiers[0].Text(source)
		site.IsMethod = true
	}

	return site, true
}
