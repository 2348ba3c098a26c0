package isa

import (
	"fmt"
	"strconv"
	"strings"
)

// Assemble converts a mnemonic listing into instruction words. One
// instruction per line; ';' starts a comment; blank lines are skipped.
//
//	MUL R0, %blockIdx, %blockDim
//	ADD R0, R0, %threadIdx
//	CONST R1, #16
//	LDR R2, R1
//	STR R1, R2
//	RET
func Assemble(src string) ([]uint16, error) {
	var words []uint16

	for lineNo, line := range strings.Split(src, "\n") {
		if i := strings.Index(line, ";"); i >= 0 {
			line = line[:i]
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		word, err := assembleLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}

		words = append(words, word)
	}

	return words, nil
}

func assembleLine(line string) (uint16, error) {
	mnemonic, rest, _ := strings.Cut(line, " ")
	mnemonic = strings.ToUpper(mnemonic)

	operands := splitOperands(rest)

	switch mnemonic {
	case "NOP":
		return Nop(), nil
	case "RET":
		return Ret(), nil
	case "ADD", "MUL":
		if len(operands) != 3 {
			return 0, fmt.Errorf("%s expects 3 operands", mnemonic)
		}
		rd, err := parseRegister(operands[0])
		if err != nil {
			return 0, err
		}
		rs, err := parseRegister(operands[1])
		if err != nil {
			return 0, err
		}
		rt, err := parseRegister(operands[2])
		if err != nil {
			return 0, err
		}
		if mnemonic == "ADD" {
			return Add(rd, rs, rt), nil
		}
		return Mul(rd, rs, rt), nil
	case "LDR":
		if len(operands) != 2 {
			return 0, fmt.Errorf("LDR expects 2 operands")
		}
		rd, err := parseRegister(operands[0])
		if err != nil {
			return 0, err
		}
		rs, err := parseRegister(operands[1])
		if err != nil {
			return 0, err
		}
		return Ldr(rd, rs), nil
	case "STR":
		if len(operands) != 2 {
			return 0, fmt.Errorf("STR expects 2 operands")
		}
		rs, err := parseRegister(operands[0])
		if err != nil {
			return 0, err
		}
		rt, err := parseRegister(operands[1])
		if err != nil {
			return 0, err
		}
		return Str(rs, rt), nil
	case "CONST":
		if len(operands) != 2 {
			return 0, fmt.Errorf("CONST expects 2 operands")
		}
		rd, err := parseRegister(operands[0])
		if err != nil {
			return 0, err
		}
		imm, err := parseImmediate(operands[1])
		if err != nil {
			return 0, err
		}
		return Const(rd, imm), nil
	default:
		return 0, fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
}

func splitOperands(rest string) []string {
	var operands []string
	for _, op := range strings.Split(rest, ",") {
		op = strings.TrimSpace(op)
		if op != "" {
			operands = append(operands, op)
		}
	}
	return operands
}

func parseRegister(token string) (uint8, error) {
	switch strings.ToLower(token) {
	case "%blockidx":
		return RegBlockIdx, nil
	case "%blockdim":
		return RegBlockDim, nil
	case "%threadidx":
		return RegThreadIdx, nil
	}

	upper := strings.ToUpper(token)
	if !strings.HasPrefix(upper, "R") {
		return 0, fmt.Errorf("invalid register %q", token)
	}

	n, err := strconv.Atoi(upper[1:])
	if err != nil || n < 0 || n >= NumRegisters {
		return 0, fmt.Errorf("invalid register %q", token)
	}

	return uint8(n), nil
}

func parseImmediate(token string) (uint8, error) {
	token = strings.TrimPrefix(token, "#")

	n, err := strconv.Atoi(token)
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("invalid immediate %q", token)
	}

	return uint8(n), nil
}

// Disassemble renders one instruction word for traces and dumps.
func Disassemble(word uint16) string {
	inst := Decode(word)

	switch inst.Op {
	case OpNOP, OpRET:
		return inst.Op.Name()
	case OpADD, OpMUL:
		return fmt.Sprintf("%s %s, %s, %s",
			inst.Op.Name(), regName(inst.Rd), regName(inst.Rs), regName(inst.Rt))
	case OpLDR:
		return fmt.Sprintf("LDR %s, %s", regName(inst.Rd), regName(inst.Rs))
	case OpSTR:
		return fmt.Sprintf("STR %s, %s", regName(inst.Rs), regName(inst.Rt))
	case OpCONST:
		return fmt.Sprintf("CONST %s, #%d", regName(inst.Rd), inst.Imm)
	default:
		return "NOP"
	}
}

func regName(r uint8) string {
	switch r {
	case RegBlockIdx:
		return "%blockIdx"
	case RegBlockDim:
		return "%blockDim"
	case RegThreadIdx:
		return "%threadIdx"
	default:
		return fmt.Sprintf("R%d", r)
	}
}
