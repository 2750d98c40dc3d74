package lottery

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/go-playground/validator/v10"
)

type manualPick struct {
	Numbers []int `validate:"len=6,unique,dive,min=1,max=100"`
}

// RandomNumbers выбирает 6 разных чисел от 1 до 100.
func RandomNumbers() Numbers {
	perm := rand.Perm(NumberRange)[:NumbersPerTicket]
	out := make(Numbers, NumbersPerTicket)
	for i, v := range perm {
		out[i] = v + 1
	}
	sort.Ints(out)
	return out
}

// ParseNumbers проверяет числа ручного билета и возвращает их отсортированными.
func ParseNumbers(v *validator.Validate, numbers []int) (Numbers, bool) {
	if err := v.Struct(manualPick{Numbers: numbers}); err != nil {
		return nil, false
	}
	out := make(Numbers, len(numbers))
	copy(out, numbers)
	sort.Ints(out)
	return out, true
}

// Similarity — близость билета к выигрышной комбинации, 1.0 для совпадения.
// Расстояние — сумма кратчайших круговых (по модулю 100) расстояний
// от каждого числа до другого набора, в обе стороны.
func Similarity(a, b Numbers) float64 {
	d := float64(distance(a, b) + distance(b, a))
	return math.Exp((-0.8*d+92)/20) / math.Exp(92.0/20)
}

func distance(from, to Numbers) int {
	total := 0
	for _, x := range from {
		best := NumberRange
		for _, y := range to {
			if d := circular(x, y); d < best {
				best = d
			}
		}
		total += best
	}
	return total
}

func circular(x, y int) int {
	d := x - y
	if d < 0 {
		d = -d
	}
	d %= NumberRange
	if NumberRange-d < d {
		return NumberRange - d
	}
	return d
}
