package api

// GL returns a small OpenGL operation table.
// It stands in for the generated table in the host harness and in tests.
func GL() *Table {
	return MustTable(
		Entry{Name: "glActiveTexture"},
		Entry{Name: "glActiveTextureARB", Group: "glActiveTexture"},
		Entry{Name: "glBindBuffer"},
		Entry{Name: "glBindBufferARB", Group: "glBindBuffer"},
		Entry{Name: "glBindTexture"},
		Entry{Name: "glBufferData"},
		Entry{Name: "glBufferDataARB", Group: "glBufferData"},
		Entry{Name: "glClear"},
		Entry{Name: "glClearColor"},
		Entry{Name: "glDrawArrays"},
		Entry{Name: "glDrawArraysEXT", Group: "glDrawArrays"},
		Entry{Name: "glDrawElements"},
		Entry{Name: "glEnable"},
		Entry{Name: "glDisable"},
		Entry{Name: "glFinish"},
		Entry{Name: "glFlush"},
		Entry{Name: "glGetError"},
		Entry{Name: "glGetIntegerv"},
		Entry{Name: "glTexImage2D"},
		Entry{Name: "glUseProgram"},
		Entry{Name: "glUseProgramObjectARB", Group: "glUseProgram"},
		Entry{Name: "glViewport"},
		Entry{Name: "glXGetProcAddressARB"},
		Entry{Name: "glXMakeCurrent"},
		Entry{Name: "glXSwapBuffers"},
	)
}
