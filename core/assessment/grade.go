package assessment

// grades, best to worst
const (
	GradeO = "O"
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
	GradeE = "E"
	GradeF = "F"
)

var AllGrades = []string{GradeO, GradeA, GradeB, GradeC, GradeD, GradeE, GradeF}

// CalculateGrade maps a percentage score to a letter grade.
// O: 90-100, A: 80-89, B: 70-79, C: 60-69, D: 50-59, E: 40-49, F: 0-39.
func CalculateGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return GradeO
	case percentage >= 80:
		return GradeA
	case percentage >= 70:
		return GradeB
	case percentage >= 60:
		return GradeC
	case percentage >= 50:
		return GradeD
	case percentage >= 40:
		return GradeE
	}
	return GradeF
}
