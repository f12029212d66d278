/*
Package bigram implements a character-level bigram language model over a small,
closed alphabet.

Raw counts of adjacent-character pairs are turned into a row-stochastic
probability matrix with BuildProbabilities. ScoreWord and ScoreCorpus measure how
likely observed words are under that matrix, and Generate produces new words by
repeatedly drawing the next character with SampleNext until the end token is
drawn or a maximum length is reached.

Every operation receives its start/end Tokens, its Vocabulary and its matrix
explicitly; nothing is global. Randomness is always injected as a math/rand/v2
Source so that generation is reproducible under a fixed seed. Matrices are
never modified in place, so a probability matrix (or a Model snapshot) may be
shared between goroutines as long as each one uses its own Source.
*/
package bigram
