/*
Package store keeps word-list corpora and their raw bigram counts in a SQLite
database and turns them into the inputs of package bigram: an ordered word
list, a Vocabulary and an aligned count matrix.

Only corpora and counts are stored. Probability matrices are always rebuilt
from the counts with bigram.BuildProbabilities, so a corpus can be evaluated
under any smoothing constant without retraining.
*/
package store
