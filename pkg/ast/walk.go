package ast

// Inspect traverses the tree rooted at n in depth-first order, calling f for
// each node. Children are skipped when f returns false. Nested function
// bodies are not entered: a Call's Target is a reference, not a child.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *FieldAccess:
		Inspect(n.X, f)
	case *Unary:
		Inspect(n.X, f)
	case *Binary:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *Call:
		if n.Receiver != nil {
			Inspect(n.Receiver, f)
		}
		inspectExprs(n.Args, f)
	case *CallValue:
		Inspect(n.Callee, f)
		inspectExprs(n.Args, f)
	case *Index:
		Inspect(n.X, f)
		Inspect(n.Index, f)
	case *New:
		inspectExprs(n.Args, f)
	case *Clone:
		Inspect(n.X, f)
	case *Cast:
		Inspect(n.X, f)

	case *ExprStmt:
		Inspect(n.X, f)
	case *VarDecl:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
	case *Assign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *If:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *While:
		Inspect(n.Cond, f)
		Inspect(n.Body, f)
	case *For:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
		if n.Cond != nil {
			Inspect(n.Cond, f)
		}
		if n.Post != nil {
			Inspect(n.Post, f)
		}
		Inspect(n.Body, f)
	case *Return:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *Delete:
		Inspect(n.X, f)
	case *FuncDecl:
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	}
}

func inspectExprs(list []Expr, f func(Node) bool) {
	for _, e := range list {
		Inspect(e, f)
	}
}

// EscapesLoop reports whether body contains a break or return that leaves the
// loop whose body it is. Breaks inside nested loops belong to those loops.
func EscapesLoop(body Stmt) bool {
	found := false
	Inspect(body, func(n Node) bool {
		switch n.(type) {
		case *Break, *Return:
			found = true
		case *While, *For:
			return n == Node(body)
		}
		return !found
	})
	return found
}
