package lang

func (Throwable) AsObject() Object { return Object{} }

func (Exception) AsThrowable() Throwable { return Throwable{} }
func (Exception) AsObject() Object       { return Object{} }

func (RuntimeException) AsException() Exception { return Exception{} }
func (RuntimeException) AsThrowable() Throwable { return Throwable{} }
func (RuntimeException) AsObject() Object       { return Object{} }

func (IndexOutOfBoundsException) AsRuntimeException() RuntimeException { return RuntimeException{} }
func (IndexOutOfBoundsException) AsException() Exception               { return Exception{} }
func (IndexOutOfBoundsException) AsThrowable() Throwable               { return Throwable{} }
func (IndexOutOfBoundsException) AsObject() Object                     { return Object{} }

func (IllegalArgumentException) AsRuntimeException() RuntimeException { return RuntimeException{} }
func (IllegalArgumentException) AsException() Exception               { return Exception{} }
func (IllegalArgumentException) AsThrowable() Throwable               { return Throwable{} }
func (IllegalArgumentException) AsObject() Object                     { return Object{} }

func (Error) AsThrowable() Throwable { return Throwable{} }
func (Error) AsObject() Object       { return Object{} }

func (OutOfMemoryError) AsError() Error         { return Error{} }
func (OutOfMemoryError) AsThrowable() Throwable { return Throwable{} }
func (OutOfMemoryError) AsObject() Object       { return Object{} }

func (String) AsObject() Object { return Object{} }

func (Class) AsObject() Object { return Object{} }

func (Number) AsObject() Object { return Object{} }

func (Integer) AsNumber() Number { return Number{} }
func (Integer) AsObject() Object { return Object{} }
