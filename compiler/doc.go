/*
Package compiler assembles KL27 source into KL27 executables.

Process of compilation

Assembly Text ->
	preprocess (#include, #ID) ->
Line Stream ->
	assemble (first pass) ->
Code Stream with Label Placeholders + Label Table ->
	resolve labels (second pass) ->
Code Body ->
	build image ->
Binary Executable (header, label table, code body)

Every stage is in its own package:
front (preprocessor and first pass), asm (instruction encoding),
link (label table and resolution), image (executable format).
*/
package compiler
