package apl

import "fmt"

// Expr is a typed node in a parsed conditional expression. Values are
// float64 throughout; booleans are 0 and 1, and any non-zero value is
// truthy. Evaluation resolves field paths through the run's Resolver,
// never reflection or string evaluation.
type Expr interface {
	Eval(env *Env) (float64, error)
}

// Env carries everything an expression may reference during one evaluation:
// the field resolver bound to the current state, and the run's variables.
type Env struct {
	Resolver *Resolver
	Vars     map[string]float64
}

type numberLit struct {
	value float64
}

func (n numberLit) Eval(*Env) (float64, error) { return n.value, nil }

type pathRef struct {
	path string
}

func (p pathRef) Eval(env *Env) (float64, error) {
	return env.Resolver.Resolve(p.path, env.Vars)
}

type unaryExpr struct {
	op      tokenKind // tokNot or tokMinus
	operand Expr
}

func (u unaryExpr) Eval(env *Env) (float64, error) {
	v, err := u.operand.Eval(env)
	if err != nil {
		return 0, err
	}
	switch u.op {
	case tokNot:
		return boolVal(v == 0), nil
	case tokMinus:
		return -v, nil
	}
	return 0, fmt.Errorf("unknown unary operator")
}

type binaryExpr struct {
	op          tokenKind
	left, right Expr
}

func (b binaryExpr) Eval(env *Env) (float64, error) {
	l, err := b.left.Eval(env)
	if err != nil {
		return 0, err
	}
	// Short-circuit the logical operators.
	switch b.op {
	case tokAnd:
		if l == 0 {
			return 0, nil
		}
		r, err := b.right.Eval(env)
		if err != nil {
			return 0, err
		}
		return boolVal(r != 0), nil
	case tokOr:
		if l != 0 {
			return 1, nil
		}
		r, err := b.right.Eval(env)
		if err != nil {
			return 0, err
		}
		return boolVal(r != 0), nil
	}

	r, err := b.right.Eval(env)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case tokLT:
		return boolVal(l < r), nil
	case tokLE:
		return boolVal(l <= r), nil
	case tokGT:
		return boolVal(l > r), nil
	case tokGE:
		return boolVal(l >= r), nil
	case tokEQ:
		return boolVal(l == r), nil
	case tokNE:
		return boolVal(l != r), nil
	case tokPlus:
		return l + r, nil
	case tokMinus:
		return l - r, nil
	case tokStar:
		return l * r, nil
	case tokSlash:
		if r == 0 {
			return 0, nil // division by zero yields 0, keeping evaluation total
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown binary operator")
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// EvalBool evaluates e and reports truthiness.
func EvalBool(e Expr, env *Env) (bool, error) {
	if e == nil {
		return true, nil // absent condition always passes
	}
	v, err := e.Eval(env)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
