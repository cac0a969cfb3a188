package main

import "fmt"

// Compiler is the code generator of §4.4: it walks the optimized program and
// emits one Function per (function ...) declaration plus an implicit
// <main>, then resolves labels and global fixups once every function's
// final layout is known.
type Compiler struct {
	globals     map[string]*Symbol
	globalNames []string

	functions  []*Function
	current    *Function
	breakStack []*Label

	globalFixups []globalFixup

	Warnf func(mess string, args ...interface{})

	// Populated once CompileProgram returns successfully; used by the
	// listing writer.
	Retained    []*Function
	GlobalNames []string
	Globals     map[string]*Symbol
}

func NewCompiler() *Compiler {
	return &Compiler{globals: make(map[string]*Symbol)}
}

func (c *Compiler) warnf(mess string, args ...interface{}) {
	if c.Warnf != nil {
		c.Warnf(mess, args...)
	}
}

func (c *Compiler) addGlobal(name string, sym *Symbol) {
	c.globals[name] = sym
	c.globalNames = append(c.globalNames, name)
}

// lookupSymbol walks the current function's scope stack, then its enclosing
// functions (raising a "closures not implemented" error for any hit there),
// then falls through to the shared global table, implicitly creating an
// uninitialized global variable if the name has never been seen.
func (c *Compiler) lookupSymbol(name string) (*Symbol, error) {
	if sym, ok := c.current.Lookup(name); ok {
		return sym, nil
	}
	for fn := c.current.Enclosing; fn != nil; fn = fn.Enclosing {
		if _, ok := fn.Lookup(name); ok {
			return nil, semanticErrorf("closures not implemented: variable %s defined in enclosing function", name)
		}
	}
	if sym, ok := c.globals[name]; ok {
		return sym, nil
	}
	sym := &Symbol{Kind: SymGlobal, Index: len(c.globals)}
	c.addGlobal(name, sym)
	return sym, nil
}

// CompileProgram compiles the optimized, macro-expanded program into a flat
// ordered sequence of encoded 32-bit instruction words.
func (c *Compiler) CompileProgram(program []Expr) ([]uint32, error) {
	main := NewFunction("<main>", nil)
	main.Referenced = true
	c.current = main
	c.functions = []*Function{main}

	heapstart, err := c.lookupSymbol("$heapstart")
	if err != nil {
		return nil, err
	}
	heapstart.Initialized = true
	// The push at offset 1 is the value stored into $heapstart; it is later
	// repatched with the final global count (§4.4.3 step 5). The second push
	// is the store address, 0; this relies on $heapstart being the very
	// first global allocated, so its slot is guaranteed to be index 0 and
	// needs no fixup of its own.
	main.Emit(OpPush, 0)
	main.Emit(OpPush, 0)
	main.Emit(OpStore, 0)
	main.Emit(OpPop, 0)

	for _, form := range program {
		if form.HeadAtom() == "function" {
			if err := c.compileFunctionDecl(form); err != nil {
				return nil, err
			}
		} else {
			if err := c.compileExpression(form, false); err != nil {
				return nil, err
			}
			c.current.Emit(OpPop, 0)
		}
	}

	forever := c.current.NewLabel()
	c.current.DefineLabel(forever)
	c.current.EmitBranch(OpGoto, forever)

	var retained []*Function
	for _, fn := range c.functions {
		if fn.Referenced {
			retained = append(retained, fn)
		}
	}

	addr := 0
	for _, fn := range retained {
		fn.Base = addr
		addr += len(fn.Code)
	}

	for _, fn := range retained {
		fn.Code[0] = instruction{op: OpReserve, operand: fn.NumLocals}
		for _, fx := range fn.Fixups {
			if !fx.Label.Defined {
				return nil, internalErrorf("undefined label referenced in function %s", fn.Name)
			}
			fn.Code[fx.InstrOffset].operand = fn.Base + fx.Label.Offset
		}
	}

	for _, name := range c.globalNames {
		if sym := c.globals[name]; !sym.Initialized {
			c.warnf("warning: unknown variable %s", name)
		}
	}

	for _, gf := range c.globalFixups {
		var val int
		if gf.TargetFunc != nil {
			val = gf.TargetFunc.Base
		} else {
			switch gf.TargetSym.Kind {
			case SymGlobal:
				val = gf.TargetSym.Index
			case SymFunction:
				val = gf.TargetSym.Func.Base
			default:
				return nil, internalErrorf("unknown global fixup target kind")
			}
		}
		gf.Fn.Code[gf.InstrOffset].operand = val
	}

	// Final count of globals (variables and functions share one namespace
	// and one counter), used by the VM to size its global area.
	retained[0].Code[1].operand = len(c.globals)

	c.Retained = retained
	c.GlobalNames = c.globalNames
	c.Globals = c.globals

	var words []uint32
	for _, fn := range retained {
		for _, in := range fn.Code {
			words = append(words, in.encode())
		}
	}
	return words, nil
}

func (c *Compiler) addGlobalFixup(target *Symbol) {
	c.globalFixups = append(c.globalFixups, globalFixup{
		Fn:          c.current,
		InstrOffset: len(c.current.Code) - 1,
		TargetSym:   target,
	})
}

func (c *Compiler) addFunctionFixup(fn *Function) {
	c.globalFixups = append(c.globalFixups, globalFixup{
		Fn:          c.current,
		InstrOffset: len(c.current.Code) - 1,
		TargetFunc:  fn,
	})
}

// compileFunctionDecl handles (function NAME (PARAMS...) BODY...) at the
// top level.
func (c *Compiler) compileFunctionDecl(form Expr) error {
	if len(form.List) < 3 {
		return fmt.Errorf("function: expected (function name (params...) body...)")
	}
	name := form.List[1].Atom
	params := form.List[2].List
	body := form.List[3:]

	fn, err := c.compileFunctionBody(name, params, body)
	if err != nil {
		return err
	}
	c.functions = append(c.functions, fn)

	if sym, ok := c.globals[name]; ok {
		if sym.Initialized {
			return semanticErrorf("global variable %s redefined as function", name)
		}
		c.current.Emit(OpPush, 0)
		c.addFunctionFixup(fn)
		c.current.Emit(OpPush, 0)
		c.addGlobalFixup(sym)
		c.current.Emit(OpStore, 0)
		c.current.Emit(OpPop, 0)
		sym.Initialized = true
		fn.Referenced = true
	} else {
		sym := &Symbol{Kind: SymFunction, Initialized: true, Func: fn}
		c.addGlobal(name, sym)
	}
	return nil
}

func (c *Compiler) compileFunctionBody(name string, params []Expr, body []Expr) (*Function, error) {
	old := c.current
	fn := NewFunction(name, old)
	for _, p := range params {
		fn.DeclareParam(p.Atom)
	}
	c.current = fn
	if err := c.compileSequence(body, true); err != nil {
		c.current = old
		return nil, err
	}
	fn.Emit(OpReturn, 0)
	c.current = old
	return fn, nil
}

// compileExpression compiles any expression, leaving exactly one value on
// the stack.
func (c *Compiler) compileExpression(expr Expr, isTailCall bool) error {
	switch expr.Kind {
	case KindInt:
		if expr.Int < minInt16 || expr.Int > maxInt16 {
			return semanticErrorf("integer literal %d out of 16-bit range", expr.Int)
		}
		c.current.Emit(OpPush, expr.Int)
		return nil
	case KindAtom:
		if expr.IsQuotedString() {
			return c.compileString(expr.StringContents())
		}
		switch expr.Atom {
		case "nil", "false":
			c.current.Emit(OpPush, 0)
			return nil
		case "true":
			c.current.Emit(OpPush, 1)
			return nil
		default:
			return c.compileIdentifierRef(expr.Atom)
		}
	case KindList:
		if len(expr.List) == 0 {
			c.current.Emit(OpPush, 0)
			return nil
		}
		return c.compileCombination(expr, isTailCall)
	}
	return internalErrorf("unknown expression kind %d", expr.Kind)
}

func (c *Compiler) compileIdentifierRef(name string) error {
	sym, err := c.lookupSymbol(name)
	if err != nil {
		return err
	}
	switch sym.Kind {
	case SymLocal:
		c.current.Emit(OpGetlocal, sym.Index)
	case SymGlobal:
		c.current.Emit(OpPush, 0)
		c.addGlobalFixup(sym)
		c.current.Emit(OpLoad, 0)
	case SymFunction:
		sym.Func.Referenced = true
		c.current.Emit(OpPush, 0)
		c.addGlobalFixup(sym)
	default:
		return internalErrorf("symbol %q has no valid kind", name)
	}
	return nil
}

func (c *Compiler) compileCombination(expr Expr, isTailCall bool) error {
	head := expr.HeadAtom()
	if head == "" {
		return c.compileFunctionCall(expr, isTailCall)
	}
	if prim, ok := primitives[head]; ok {
		return c.compilePrimitive(expr, prim)
	}
	switch head {
	case "function":
		if _, ok := paramListOrNil(expr); ok {
			return c.compileAnonymousFunction(expr)
		}
		return fmt.Errorf("function: malformed anonymous function expression")
	case "begin":
		return c.compileSequence(expr.List[1:], isTailCall)
	case "while":
		return c.compileWhile(expr)
	case "break":
		return c.compileBreak(expr)
	case "if":
		return c.compileIf(expr, isTailCall)
	case "assign":
		return c.compileAssign(expr)
	case "quote":
		return c.compileQuote(expr.List[1])
	case "let":
		return c.compileLet(expr, isTailCall)
	case "getbp":
		c.current.Emit(OpGetbp, 0)
		return nil
	case "and", "or", "not":
		return c.compileBooleanExpression(expr)
	default:
		return c.compileFunctionCall(expr, isTailCall)
	}
}

// paramListOrNil reports whether expr is a well-formed anonymous function
// form (function (PARAMS...) BODY...), i.e. its second element is a list.
func paramListOrNil(expr Expr) (Expr, bool) {
	if len(expr.List) < 2 || !expr.List[1].IsList() {
		return Expr{}, false
	}
	return expr.List[1], true
}

func (c *Compiler) compileQuote(expr Expr) error {
	switch expr.Kind {
	case KindInt:
		c.current.Emit(OpPush, expr.Int)
		return nil
	case KindAtom:
		if expr.IsQuotedString() {
			return c.compileString(expr.StringContents())
		}
		return c.compileString(expr.Atom)
	case KindList:
		if len(expr.List) == 0 {
			c.current.Emit(OpPush, 0)
			return nil
		}
		if len(expr.List) == 3 && expr.List[1].IsAtom() && expr.List[1].Atom == "." {
			if err := c.compileQuote(expr.List[2]); err != nil {
				return err
			}
			if err := c.compileQuote(expr.List[0]); err != nil {
				return err
			}
			return c.emitConsCall()
		}
		return c.compileQuotedList(expr.List)
	}
	return internalErrorf("unknown expression kind in quote")
}

func (c *Compiler) compileQuotedList(tail []Expr) error {
	if len(tail) == 1 {
		c.current.Emit(OpPush, 0)
	} else if err := c.compileQuotedList(tail[1:]); err != nil {
		return err
	}
	if err := c.compileQuote(tail[0]); err != nil {
		return err
	}
	return c.emitConsCall()
}

// compileString lowers a string's characters into a right-folded chain of
// cons calls terminated by 0, matching the quoted-list encoding since there
// is no first-class string type.
func (c *Compiler) compileString(s string) error {
	if len(s) == 0 {
		c.current.Emit(OpPush, 0)
		return nil
	}
	if len(s) == 1 {
		c.current.Emit(OpPush, 0)
	} else if err := c.compileString(s[1:]); err != nil {
		return err
	}
	c.current.Emit(OpPush, int(s[0]))
	return c.emitConsCall()
}

func (c *Compiler) emitConsCall() error {
	if err := c.compileIdentifierRef("cons"); err != nil {
		return err
	}
	c.current.Emit(OpCall, 0)
	c.current.Emit(OpCleanup, 2)
	return nil
}

func (c *Compiler) compileAssign(expr Expr) error {
	if len(expr.List) != 3 {
		return fmt.Errorf("assign: expected (assign name value)")
	}
	name := expr.List[1].Atom
	sym, err := c.lookupSymbol(name)
	if err != nil {
		return err
	}
	switch sym.Kind {
	case SymLocal:
		if err := c.compileExpression(expr.List[2], false); err != nil {
			return err
		}
		c.current.Emit(OpSetlocal, sym.Index)
		return nil
	case SymGlobal:
		if err := c.compileExpression(expr.List[2], false); err != nil {
			return err
		}
		c.current.Emit(OpPush, 0)
		c.addGlobalFixup(sym)
		c.current.Emit(OpStore, 0)
		sym.Initialized = true
		return nil
	case SymFunction:
		return semanticErrorf("cannot assign function %s", name)
	}
	return internalErrorf("unknown symbol kind for %s", name)
}

func (c *Compiler) compileBooleanExpression(expr Expr) error {
	falseLabel := c.current.NewLabel()
	doneLabel := c.current.NewLabel()
	if err := c.compilePredicate(expr, falseLabel); err != nil {
		return err
	}
	c.current.Emit(OpPush, 1)
	c.current.EmitBranch(OpGoto, doneLabel)
	c.current.DefineLabel(falseLabel)
	c.current.Emit(OpPush, 0)
	c.current.DefineLabel(doneLabel)
	return nil
}

func (c *Compiler) compilePredicate(expr Expr, falseLabel *Label) error {
	if expr.IsList() && len(expr.List) > 0 {
		switch expr.HeadAtom() {
		case "and":
			if len(expr.List) < 2 {
				return fmt.Errorf("wrong number of arguments for and")
			}
			for _, cond := range expr.List[1:] {
				if err := c.compilePredicate(cond, falseLabel); err != nil {
					return err
				}
			}
			return nil
		case "or":
			if len(expr.List) < 2 {
				return fmt.Errorf("wrong number of arguments for or")
			}
			trueTarget := c.current.NewLabel()
			conds := expr.List[1:]
			for _, cond := range conds[:len(conds)-1] {
				testNext := c.current.NewLabel()
				if err := c.compilePredicate(cond, testNext); err != nil {
					return err
				}
				c.current.EmitBranch(OpGoto, trueTarget)
				c.current.DefineLabel(testNext)
			}
			if err := c.compilePredicate(conds[len(conds)-1], falseLabel); err != nil {
				return err
			}
			c.current.DefineLabel(trueTarget)
			return nil
		case "not":
			if len(expr.List) != 2 {
				return fmt.Errorf("wrong number of arguments for not")
			}
			skipTo := c.current.NewLabel()
			if err := c.compilePredicate(expr.List[1], skipTo); err != nil {
				return err
			}
			c.current.EmitBranch(OpGoto, falseLabel)
			c.current.DefineLabel(skipTo)
			return nil
		}
	}
	if err := c.compileExpression(expr, false); err != nil {
		return err
	}
	c.current.EmitBranch(OpBfalse, falseLabel)
	return nil
}

func (c *Compiler) compileIf(expr Expr, isTailCall bool) error {
	if len(expr.List) < 3 {
		return fmt.Errorf("if: expected (if cond then [else])")
	}
	falseLabel := c.current.NewLabel()
	doneLabel := c.current.NewLabel()

	if err := c.compilePredicate(expr.List[1], falseLabel); err != nil {
		return err
	}
	if err := c.compileExpression(expr.List[2], isTailCall); err != nil {
		return err
	}
	c.current.EmitBranch(OpGoto, doneLabel)
	c.current.DefineLabel(falseLabel)

	if len(expr.List) > 3 {
		if err := c.compileExpression(expr.List[3], isTailCall); err != nil {
			return err
		}
	} else {
		c.current.Emit(OpPush, 0)
	}
	c.current.DefineLabel(doneLabel)
	return nil
}

func (c *Compiler) compileWhile(expr Expr) error {
	if len(expr.List) < 2 {
		return fmt.Errorf("while: expected (while cond body...)")
	}
	topOfLoop := c.current.NewLabel()
	bottomOfLoop := c.current.NewLabel()
	breakLoop := c.current.NewLabel()
	c.breakStack = append(c.breakStack, breakLoop)

	c.current.DefineLabel(topOfLoop)
	if err := c.compilePredicate(expr.List[1], bottomOfLoop); err != nil {
		return err
	}
	if err := c.compileSequence(expr.List[2:], false); err != nil {
		return err
	}
	c.current.Emit(OpPop, 0)
	c.current.EmitBranch(OpGoto, topOfLoop)
	c.current.DefineLabel(bottomOfLoop)
	c.breakStack = c.breakStack[:len(c.breakStack)-1]
	c.current.Emit(OpPush, 0)
	c.current.DefineLabel(breakLoop)
	return nil
}

func (c *Compiler) compileBreak(expr Expr) error {
	if len(c.breakStack) == 0 {
		return semanticErrorf("break outside of a while loop")
	}
	label := c.breakStack[len(c.breakStack)-1]
	if len(expr.List) > 1 {
		if err := c.compileExpression(expr.List[1], false); err != nil {
			return err
		}
	} else {
		c.current.Emit(OpPush, 0)
	}
	c.current.EmitBranch(OpGoto, label)
	return nil
}

func (c *Compiler) compileFunctionCall(expr Expr, isTailCall bool) error {
	if expr.List[0].IsInt() {
		return semanticErrorf("cannot use integer as function")
	}
	args := expr.List[1:]
	for i := len(args) - 1; i >= 0; i-- {
		if err := c.compileExpression(args[i], false); err != nil {
			return err
		}
	}

	if isTailCall && c.current.Name != "" && c.current.Name == expr.HeadAtom() {
		for i := range args {
			c.current.Emit(OpSetlocal, i+1)
			c.current.Emit(OpPop, 0)
		}
		c.current.EmitBranch(OpGoto, c.current.Entry)
		return nil
	}

	if err := c.compileExpression(expr.List[0], false); err != nil {
		return err
	}
	c.current.Emit(OpCall, 0)
	if len(args) > 0 {
		c.current.Emit(OpCleanup, len(args))
	}
	return nil
}

func (c *Compiler) compileAnonymousFunction(expr Expr) error {
	c.current.PushScope()
	fn, err := c.compileFunctionBody("", expr.List[1].List, expr.List[2:])
	c.current.PopScope()
	if err != nil {
		return err
	}
	fn.Name = "<anonymous function>"
	fn.Referenced = true

	c.current.Emit(OpPush, TagFunction)
	c.current.Emit(OpPush, 0)
	c.addFunctionFixup(fn)
	c.current.Emit(OpSettag, 0)
	c.functions = append(c.functions, fn)
	return nil
}

// compileSequence compiles (E1 E2 ... En), popping every result but the
// last, which carries isTailCall through.
func (c *Compiler) compileSequence(seq []Expr, isTailCall bool) error {
	if len(seq) == 0 {
		c.current.Emit(OpPush, 0)
		return nil
	}
	for _, e := range seq[:len(seq)-1] {
		if err := c.compileExpression(e, false); err != nil {
			return err
		}
		c.current.Emit(OpPop, 0)
	}
	return c.compileExpression(seq[len(seq)-1], isTailCall)
}

func (c *Compiler) compileLet(expr Expr, isTailCall bool) error {
	if len(expr.List) < 2 || !expr.List[1].IsList() {
		return fmt.Errorf("let: expected (let ((var val)...) body...)")
	}
	c.current.PushScope()
	for _, binding := range expr.List[1].List {
		if !binding.IsList() || len(binding.List) != 2 {
			c.current.PopScope()
			return fmt.Errorf("let: malformed binding %v", binding)
		}
		sym := c.current.DeclareLocal(binding.List[0].Atom)
		if err := c.compileExpression(binding.List[1], false); err != nil {
			c.current.PopScope()
			return err
		}
		c.current.Emit(OpSetlocal, sym.Index)
		c.current.Emit(OpPop, 0)
	}
	err := c.compileSequence(expr.List[2:], isTailCall)
	c.current.PopScope()
	return err
}

// primitive maps a primitive head atom to its opcode, expected arity, and
// whether the two arguments are compiled in declaration order rather than
// the usual right-to-left order (used to synthesize < and <= from the
// complementary opcodes gtr/gte).
type primitive struct {
	op          Opcode
	arity       int
	reverseArgs bool
}

var primitives = map[string]primitive{
	"+":            {OpAdd, 2, false},
	"-":            {OpSub, 2, false},
	">":            {OpGtr, 2, false},
	">=":           {OpGte, 2, false},
	"<":            {OpGtr, 2, true},
	"<=":           {OpGte, 2, true},
	"=":            {OpEq, 2, false},
	"<>":           {OpNeq, 2, false},
	"load":         {OpLoad, 1, false},
	"store":        {OpStore, 2, false},
	"first":        {OpLoad, 1, false},
	"rest":         {OpRest, 1, false},
	"second":       {OpRest, 1, false},
	"settag":       {OpSettag, 2, false},
	"gettag":       {OpGettag, 1, false},
	"bitwise-and":  {OpAnd, 2, false},
	"bitwise-or":   {OpOr, 2, false},
	"bitwise-xor":  {OpXor, 2, false},
	"rshift":       {OpRshift, 2, false},
	"lshift":       {OpLshift, 2, false},
}

func (c *Compiler) compilePrimitive(expr Expr, prim primitive) error {
	if len(expr.List)-1 != prim.arity {
		return fmt.Errorf("wrong number of arguments for %s", expr.HeadAtom())
	}
	if prim.reverseArgs {
		if err := c.compileExpression(expr.List[1], false); err != nil {
			return err
		}
		if err := c.compileExpression(expr.List[2], false); err != nil {
			return err
		}
		c.current.Emit(prim.op, 0)
		return nil
	}
	if prim.arity > 1 {
		if err := c.compileExpression(expr.List[2], false); err != nil {
			return err
		}
	}
	if err := c.compileExpression(expr.List[1], false); err != nil {
		return err
	}
	c.current.Emit(prim.op, 0)
	return nil
}
