package formats

import "strings"

var elementSymbols = []string{
	"Xx",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy",
	"Ho", "Er", "Tm", "Yb", "Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt",
	"Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
}

var atomicNumbers = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for i, s := range elementSymbols {
		m[strings.ToLower(s)] = i
	}
	return m
}()

// atomicNumber returns 0 ("Xx", dummy atom) for unknown symbols.
func atomicNumber(symbol string) int {
	return atomicNumbers[strings.ToLower(symbol)]
}

func elementSymbol(number int) string {
	if number <= 0 || number >= len(elementSymbols) {
		return elementSymbols[0]
	}
	return elementSymbols[number]
}

// normalizeSymbol turns "CL" or "cl" into "Cl".
func normalizeSymbol(symbol string) string {
	if n, ok := atomicNumbers[strings.ToLower(symbol)]; ok {
		return elementSymbols[n]
	}
	return symbol
}
